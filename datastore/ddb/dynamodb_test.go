/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suparena/sti/datastore"
	"github.com/suparena/sti/errors"
	"github.com/suparena/sti/registry"
	"github.com/suparena/sti/storagemodels"
)

var _ datastore.Engine = (*Engine)(nil)

const keyedWidget = `Epiphyte\KeyedWidget`

func init() {
	registry.RegisterIndexMap(keyedWidget, map[string]string{
		"PK":  "WIDGET#{id}",
		"SK":  "WIDGET#{id}",
		"PK1": "STATUS#{status}",
		"SK1": "NAME#{name}",
	})
}

func keyedQuery() *storagemodels.Query {
	return storagemodels.NewQuery("widgets", "id").ForBaseType(keyedWidget)
}

func plainQuery() *storagemodels.Query {
	return storagemodels.NewQuery("widgets", "id").ForBaseType(`Epiphyte\PlainWidget`)
}

func TestExpandMacros(t *testing.T) {
	expanded, err := expandMacros(map[string]string{
		"PK":  "WIDGET#{id}",
		"PK1": "STATUS#{status}",
		"PK2": "OWNER#{owner}",
		"SK2": "FLAG#{enabled}",
	}, storagemodels.Row{"id": 7, "status": "active", "owner": nil, "enabled": true})
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"PK":  "WIDGET#7",
		"PK1": "STATUS#active",
		"SK2": "FLAG#true",
	}, expanded)
}

func TestKeyFor(t *testing.T) {
	key, err := keyFor(keyedQuery(), storagemodels.Row{"id": "abc"})
	require.NoError(t, err)
	assert.Equal(t, map[string]types.AttributeValue{"PK": s("WIDGET#abc"), "SK": s("WIDGET#abc")}, key)

	key, err = keyFor(plainQuery(), storagemodels.Row{"id": 7})
	require.NoError(t, err)
	assert.Equal(t, map[string]types.AttributeValue{"id": n("7")}, key)

	_, err = keyFor(keyedQuery(), storagemodels.Row{"name": "x"})
	assert.True(t, errors.IsValidationError(err))

	_, err = keyFor(plainQuery(), storagemodels.Row{})
	assert.True(t, errors.IsValidationError(err))
}

func TestBuildUpdateExpression(t *testing.T) {
	expr, names, values, err := buildUpdateExpression(storagemodels.Row{
		"name":       "gear",
		"deleted_at": nil,
		"rank":       3,
	})
	require.NoError(t, err)

	assert.Equal(t, "SET #f1 = :v1, #f2 = :v2 REMOVE #f0", expr)
	assert.Equal(t, map[string]string{"#f0": "deleted_at", "#f1": "name", "#f2": "rank"}, names)
	assert.Equal(t, map[string]types.AttributeValue{":v1": s("gear"), ":v2": n("3")}, values)

	_, _, _, err = buildUpdateExpression(storagemodels.Row{})
	assert.Error(t, err)
}

func TestInsert(t *testing.T) {
	ctx := context.Background()
	api := &fakeAPI{}
	engine := New(api)

	err := engine.Insert(ctx, keyedQuery(), storagemodels.Row{"id": "abc", "status": "active", "deleted_at": nil})
	require.NoError(t, err)
	require.Len(t, api.puts, 1)

	in := api.puts[0]
	assert.Equal(t, "widgets", aws.ToString(in.TableName))
	assert.Equal(t, "attribute_not_exists(#pk)", aws.ToString(in.ConditionExpression))
	assert.Equal(t, map[string]string{"#pk": "PK"}, in.ExpressionAttributeNames)
	assert.Equal(t, s("WIDGET#abc"), in.Item["PK"])
	assert.Equal(t, s("WIDGET#abc"), in.Item["SK"])
	assert.Equal(t, s("STATUS#active"), in.Item["PK1"])
	assert.Equal(t, s("abc"), in.Item["id"])
	assert.NotContains(t, in.Item, "SK1", "sparse GSI attribute without a name")
	assert.NotContains(t, in.Item, "deleted_at")

	api.putErr = &types.ConditionalCheckFailedException{}
	err = engine.Insert(ctx, keyedQuery(), storagemodels.Row{"id": "abc", "status": "active"})
	assert.True(t, errors.IsAlreadyExists(err))
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()
	api := &fakeAPI{}
	engine := New(api)

	err := engine.Update(ctx, keyedQuery(), "abc", storagemodels.Row{"status": "archived", "deleted_at": nil})
	require.NoError(t, err)
	require.Len(t, api.updates, 1)

	in := api.updates[0]
	assert.Equal(t, map[string]types.AttributeValue{"PK": s("WIDGET#abc"), "SK": s("WIDGET#abc")}, in.Key)
	assert.Equal(t, "attribute_exists(#pk)", aws.ToString(in.ConditionExpression))
	assert.Equal(t, "SET #f0 = :v0, #f2 = :v2 REMOVE #f1", aws.ToString(in.UpdateExpression))
	assert.Equal(t, map[string]string{"#f0": "PK1", "#f1": "deleted_at", "#f2": "status", "#pk": "PK"}, in.ExpressionAttributeNames)
	assert.Equal(t, s("STATUS#archived"), in.ExpressionAttributeValues[":v0"])

	api.updateErr = &types.ConditionalCheckFailedException{}
	err = engine.Update(ctx, keyedQuery(), "abc", storagemodels.Row{"status": "active"})
	assert.True(t, errors.IsNotFound(err))

	assert.NoError(t, engine.Update(ctx, keyedQuery(), "abc", storagemodels.Row{}))
	assert.Len(t, api.updates, 2)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	api := &fakeAPI{}
	engine := New(api)

	require.NoError(t, engine.Delete(ctx, plainQuery(), 7))
	require.Len(t, api.deletes, 1)
	assert.Equal(t, map[string]types.AttributeValue{"id": n("7")}, api.deletes[0].Key)
	assert.Equal(t, map[string]string{"#pk": "id"}, api.deletes[0].ExpressionAttributeNames)

	api.deleteErr = &types.ConditionalCheckFailedException{}
	err := engine.Delete(ctx, plainQuery(), 7)
	assert.True(t, errors.IsNotFound(err))
}

func TestBuildRequest(t *testing.T) {
	engine := New(&fakeAPI{})

	t.Run("soft delete scan", func(t *testing.T) {
		req, err := engine.buildRequest(plainQuery().WhereNull("deleted_at"))
		require.NoError(t, err)

		assert.False(t, req.isQuery())
		assert.Equal(t, "(attribute_not_exists(#f0) OR #f0 = :null)", req.filter)
		assert.Equal(t, map[string]string{"#f0": "deleted_at"}, req.names)
		assert.Equal(t, &types.AttributeValueMemberNULL{Value: true}, req.values[":null"])
	})

	t.Run("primary key query", func(t *testing.T) {
		req, err := engine.buildRequest(plainQuery().Where("id", 7).WhereNull("deleted_at"))
		require.NoError(t, err)

		assert.True(t, req.isQuery())
		assert.Equal(t, "#k0 = :k0", req.keyCondition)
		assert.Equal(t, n("7"), req.values[":k0"])
		assert.Equal(t, "(attribute_not_exists(#f1) OR #f1 = :null)", req.filter)
	})

	t.Run("index map key query", func(t *testing.T) {
		req, err := engine.buildRequest(keyedQuery().Where("id", "abc").WhereIn("status", "new", "active"))
		require.NoError(t, err)

		assert.Equal(t, "#k0 = :k0 AND #k1 = :k1", req.keyCondition)
		assert.Equal(t, "PK", req.names["#k0"])
		assert.Equal(t, s("WIDGET#abc"), req.values[":k0"])
		assert.Equal(t, s("WIDGET#abc"), req.values[":k1"])
		assert.Equal(t, "#f0 = :f0 AND #f1 IN (:f1_0, :f1_1)", req.filter)
	})

	t.Run("secondary index", func(t *testing.T) {
		req, err := engine.buildRequest(keyedQuery().UseIndex("GSI1").Where("status", "active").OrderBy("SK1", true))
		require.NoError(t, err)

		assert.Equal(t, "GSI1", req.indexName)
		assert.Equal(t, "PK1", req.names["#k0"])
		assert.Equal(t, s("STATUS#active"), req.values[":k0"])
		require.NotNil(t, req.scanIndexForward)
		assert.False(t, *req.scanIndexForward)
	})

	t.Run("sort key range", func(t *testing.T) {
		req, err := engine.buildRequest(keyedQuery().UseIndex("GSI1").Where("PK1", "STATUS#active").WhereOp("SK1", storagemodels.OpGte, "NAME#m"))
		require.NoError(t, err)

		assert.Equal(t, "#k0 = :k0 AND #k1 >= :k1", req.keyCondition)
		assert.Empty(t, req.filter)
	})

	t.Run("unknown index", func(t *testing.T) {
		_, err := engine.buildRequest(keyedQuery().UseIndex("GSI9"))
		assert.True(t, errors.IsValidationError(err))
	})

	t.Run("empty IN", func(t *testing.T) {
		_, err := engine.buildRequest(plainQuery().WhereIn("status"))
		assert.True(t, errors.IsValidationError(err))
	})
}

func TestSelect(t *testing.T) {
	ctx := context.Background()
	api := &fakeAPI{
		pages: []page{
			{
				items: []map[string]types.AttributeValue{
					{"PK": s("WIDGET#b"), "SK": s("WIDGET#b"), "id": s("b"), "status": s("active"), "rank": n("2")},
				},
				lastKey: map[string]types.AttributeValue{"PK": s("WIDGET#b"), "SK": s("WIDGET#b")},
			},
			{
				items: []map[string]types.AttributeValue{
					{"PK": s("WIDGET#a"), "SK": s("WIDGET#a"), "PK1": s("STATUS#new"), "id": s("a"), "status": s("new"), "rank": n("1")},
				},
			},
		},
	}
	engine := New(api)

	rows, err := engine.Select(ctx, keyedQuery().WhereNull("deleted_at").OrderBy("rank", false))
	require.NoError(t, err)

	require.Len(t, api.scans, 2)
	assert.Equal(t, s("WIDGET#b"), api.scans[1].ExclusiveStartKey["PK"])
	assert.Equal(t, []storagemodels.Row{
		{"id": "a", "status": "new", "rank": float64(1)},
		{"id": "b", "status": "active", "rank": float64(2)},
	}, rows)
}

func TestStreamRetriesAndReportsProgress(t *testing.T) {
	ctx := context.Background()
	api := &fakeAPI{
		readErrs: []error{&types.ProvisionedThroughputExceededException{}},
		pages: []page{
			{
				items: []map[string]types.AttributeValue{
					{"id": n("1"), "status": s("new")},
					{"id": n("2"), "status": s("active")},
				},
				lastKey: map[string]types.AttributeValue{"id": n("2")},
			},
			{
				items: []map[string]types.AttributeValue{
					{"id": n("3"), "status": s("active")},
				},
			},
		},
	}
	engine := New(api)

	var reports []storagemodels.StreamProgress
	results := engine.Stream(ctx, plainQuery(),
		storagemodels.WithRetryBackoff(time.Millisecond),
		storagemodels.WithPageSize(2),
		storagemodels.WithProgressHandler(func(p storagemodels.StreamProgress) {
			reports = append(reports, p)
		}),
	)

	var ids []any
	for res := range results {
		require.NoError(t, res.Error)
		ids = append(ids, res.Item["id"])
	}

	assert.Equal(t, []any{float64(1), float64(2), float64(3)}, ids)
	assert.Len(t, api.scans, 3)
	assert.Equal(t, int32(2), aws.ToInt32(api.scans[0].Limit))
	require.Len(t, reports, 2)
	assert.Equal(t, int64(3), reports[1].ItemsProcessed)
	assert.Equal(t, 2, reports[1].PagesProcessed)
}

func TestStreamStopsOnPermanentError(t *testing.T) {
	api := &fakeAPI{readErrs: []error{&types.ResourceNotFoundException{}}}
	engine := New(api)

	var got []error
	for res := range engine.Stream(context.Background(), plainQuery()) {
		got = append(got, res.Error)
	}
	require.Len(t, got, 1)
	assert.Error(t, got[0])
	assert.Len(t, api.scans, 1)
}

func TestStreamHonorsLimit(t *testing.T) {
	api := &fakeAPI{
		pages: []page{{
			items: []map[string]types.AttributeValue{
				{"id": n("1")}, {"id": n("2")}, {"id": n("3")},
			},
		}},
	}
	engine := New(api)

	count := 0
	for res := range engine.Stream(context.Background(), plainQuery().WithLimit(2)) {
		require.NoError(t, res.Error)
		count++
	}
	assert.Equal(t, 2, count)
}
