/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/suparena/sti/errors"
	"github.com/suparena/sti/storagemodels"
)

// request is a storagemodels.Query translated into DynamoDB terms. A request
// with a key condition runs as Query, otherwise as Scan.
type request struct {
	table            string
	indexName        string
	keyCondition     string
	filter           string
	names            map[string]string
	values           map[string]types.AttributeValue
	scanIndexForward *bool
	// strip lists the key and index attributes removed from returned rows.
	strip map[string]string
}

func (r *request) isQuery() bool { return r.keyCondition != "" }

func (r *request) queryInput(startKey map[string]types.AttributeValue, limit int32) *sdk.QueryInput {
	in := &sdk.QueryInput{
		TableName:                 aws.String(r.table),
		KeyConditionExpression:    aws.String(r.keyCondition),
		ExpressionAttributeNames:  r.names,
		ExpressionAttributeValues: r.values,
		ScanIndexForward:          r.scanIndexForward,
		ExclusiveStartKey:         startKey,
	}
	if r.indexName != "" {
		in.IndexName = aws.String(r.indexName)
	}
	if r.filter != "" {
		in.FilterExpression = aws.String(r.filter)
	}
	if limit > 0 {
		in.Limit = aws.Int32(limit)
	}
	return in
}

func (r *request) scanInput(startKey map[string]types.AttributeValue, limit int32) *sdk.ScanInput {
	in := &sdk.ScanInput{
		TableName:         aws.String(r.table),
		ExclusiveStartKey: startKey,
	}
	if len(r.names) > 0 {
		in.ExpressionAttributeNames = r.names
	}
	if len(r.values) > 0 {
		in.ExpressionAttributeValues = r.values
	}
	if r.indexName != "" {
		in.IndexName = aws.String(r.indexName)
	}
	if r.filter != "" {
		in.FilterExpression = aws.String(r.filter)
	}
	if limit > 0 {
		in.Limit = aws.Int32(limit)
	}
	return in
}

// buildRequest picks the key condition and filter for q. The partition key
// comes from an equality condition on the key attribute itself, or from the
// index map template filled with the query's equality conditions, so
// Where("id", 7) on a table keyed "WIDGET#{id}" becomes PK = "WIDGET#7".
// Conditions on key attributes are consumed by the key condition; everything
// else becomes the filter.
func (e *Engine) buildRequest(q *storagemodels.Query) (*request, error) {
	req := &request{
		table:  q.Table,
		names:  make(map[string]string),
		values: make(map[string]types.AttributeValue),
		strip:  make(map[string]string),
	}

	pk, sk, idx := keySchema(q)
	for name, tpl := range idx {
		req.strip[name] = tpl
	}
	if q.IndexName != "" {
		gsi, ok := e.indexes[q.IndexName]
		if !ok {
			return nil, errors.NewValidationError("index", "unknown secondary index "+q.IndexName)
		}
		req.indexName = gsi.IndexName
		pk, sk = gsi.PartitionKeyName, gsi.SortKeyName
	}

	eq := make(storagemodels.Row)
	for _, c := range q.Conditions {
		if c.Op == storagemodels.OpEq {
			eq[c.Column] = c.Value
		}
	}

	keyed := make(map[string]bool)
	pkValue, ok, err := keyValue(pk, eq, idx)
	if err != nil {
		return nil, err
	}
	if ok {
		req.names["#k0"] = pk
		req.values[":k0"] = pkValue
		conds := []string{"#k0 = :k0"}
		keyed[pk] = true

		if sk != "" {
			skCond, err := sortKeyCondition(q, sk, eq, idx, req)
			if err != nil {
				return nil, err
			}
			if skCond != "" {
				conds = append(conds, skCond)
				keyed[sk] = true
			}
			if len(q.Orders) == 1 && q.Orders[0].Column == sk {
				req.scanIndexForward = aws.Bool(!q.Orders[0].Desc)
			}
		}
		req.keyCondition = strings.Join(conds, " AND ")
	}

	var filters []string
	for i, c := range q.Conditions {
		if req.isQuery() && keyed[c.Column] {
			continue
		}
		expr, err := conditionExpression(c, i, req)
		if err != nil {
			return nil, err
		}
		filters = append(filters, expr)
	}
	req.filter = strings.Join(filters, " AND ")
	return req, nil
}

// keyValue finds the value of key attribute attr among the equality
// conditions, directly or through its index map template.
func keyValue(attr string, eq storagemodels.Row, idx map[string]string) (types.AttributeValue, bool, error) {
	if v, ok := eq[attr]; ok && v != nil {
		av, err := attributevalue.Marshal(v)
		if err != nil {
			return nil, false, fmt.Errorf("failed to marshal key condition: %w", err)
		}
		return av, true, nil
	}
	tpl, ok := idx[attr]
	if !ok {
		return nil, false, nil
	}
	expanded, err := expandMacros(map[string]string{attr: tpl}, eq)
	if err != nil {
		return nil, false, err
	}
	v, ok := expanded[attr]
	if !ok || v == "" {
		return nil, false, nil
	}
	return &types.AttributeValueMemberS{Value: v}, true, nil
}

func sortKeyCondition(q *storagemodels.Query, sk string, eq storagemodels.Row, idx map[string]string, req *request) (string, error) {
	v, ok, err := keyValue(sk, eq, idx)
	if err != nil {
		return "", err
	}
	if ok {
		req.names["#k1"] = sk
		req.values[":k1"] = v
		return "#k1 = :k1", nil
	}

	var cond string
	for _, c := range q.Conditions {
		if c.Column != sk {
			continue
		}
		switch c.Op {
		case storagemodels.OpGt, storagemodels.OpGte, storagemodels.OpLt, storagemodels.OpLte:
		default:
			return "", errors.NewValidationError(sk, "unsupported sort key operator "+string(c.Op))
		}
		if cond != "" {
			return "", errors.NewValidationError(sk, "only one sort key range condition is supported")
		}
		av, err := attributevalue.Marshal(c.Value)
		if err != nil {
			return "", fmt.Errorf("failed to marshal sort key condition: %w", err)
		}
		req.names["#k1"] = sk
		req.values[":k1"] = av
		cond = fmt.Sprintf("#k1 %s :k1", c.Op)
	}
	return cond, nil
}

// conditionExpression renders one condition as a filter term. Null checks
// accept both a missing attribute and an explicit NULL.
func conditionExpression(c storagemodels.Condition, i int, req *request) (string, error) {
	name := fmt.Sprintf("#f%d", i)
	req.names[name] = c.Column

	switch c.Op {
	case storagemodels.OpNull:
		req.values[":null"] = &types.AttributeValueMemberNULL{Value: true}
		return fmt.Sprintf("(attribute_not_exists(%s) OR %s = :null)", name, name), nil
	case storagemodels.OpNotNull:
		req.values[":null"] = &types.AttributeValueMemberNULL{Value: true}
		return fmt.Sprintf("(attribute_exists(%s) AND %s <> :null)", name, name), nil
	case storagemodels.OpIn:
		values, _ := c.Value.([]any)
		if len(values) == 0 {
			return "", errors.NewValidationError(c.Column, "IN needs at least one value")
		}
		placeholders := make([]string, len(values))
		for j, v := range values {
			av, err := attributevalue.Marshal(v)
			if err != nil {
				return "", fmt.Errorf("failed to marshal filter value: %w", err)
			}
			ph := fmt.Sprintf(":f%d_%d", i, j)
			req.values[ph] = av
			placeholders[j] = ph
		}
		return fmt.Sprintf("%s IN (%s)", name, strings.Join(placeholders, ", ")), nil
	case storagemodels.OpEq, storagemodels.OpNeq, storagemodels.OpGt, storagemodels.OpGte, storagemodels.OpLt, storagemodels.OpLte:
		av, err := attributevalue.Marshal(c.Value)
		if err != nil {
			return "", fmt.Errorf("failed to marshal filter value: %w", err)
		}
		ph := fmt.Sprintf(":f%d", i)
		req.values[ph] = av
		return fmt.Sprintf("%s %s %s", name, c.Op, ph), nil
	}
	return "", errors.NewValidationError(c.Column, "unsupported operator "+string(c.Op))
}

// page is one page of items from Query or Scan.
type page struct {
	items   []map[string]types.AttributeValue
	lastKey map[string]types.AttributeValue
}

func (e *Engine) fetch(ctx context.Context, req *request, startKey map[string]types.AttributeValue, limit int32) (*page, error) {
	if req.isQuery() {
		out, err := e.client.Query(ctx, req.queryInput(startKey, limit))
		if err != nil {
			return nil, err
		}
		return &page{items: out.Items, lastKey: out.LastEvaluatedKey}, nil
	}
	out, err := e.client.Scan(ctx, req.scanInput(startKey, limit))
	if err != nil {
		return nil, err
	}
	return &page{items: out.Items, lastKey: out.LastEvaluatedKey}, nil
}

// toRow unmarshals an item and drops the engine-managed key attributes.
func (r *request) toRow(item map[string]types.AttributeValue) (storagemodels.Row, error) {
	var row map[string]any
	if err := attributevalue.UnmarshalMap(item, &row); err != nil {
		return nil, fmt.Errorf("failed to unmarshal item: %w", err)
	}
	for name := range r.strip {
		delete(row, name)
	}
	return storagemodels.Row(row), nil
}

// Select runs q to completion. Rows are sorted by q.Orders in memory, and the
// limit applies after filtering.
func (e *Engine) Select(ctx context.Context, q *storagemodels.Query) ([]storagemodels.Row, error) {
	req, err := e.buildRequest(q)
	if err != nil {
		return nil, err
	}

	rows := []storagemodels.Row{}
	var startKey map[string]types.AttributeValue
	for {
		p, err := e.fetch(ctx, req, startKey, 0)
		if err != nil {
			return nil, fmt.Errorf("query error: %w", err)
		}
		for _, item := range p.items {
			row, err := req.toRow(item)
			if err != nil {
				return nil, err
			}
			rows = append(rows, row)
		}

		if len(p.lastKey) == 0 {
			break
		}
		if q.Limit > 0 && len(q.Orders) == 0 && len(rows) >= q.Limit {
			break
		}
		startKey = p.lastKey
	}

	q.Sort(rows)
	if q.Limit > 0 && len(rows) > q.Limit {
		rows = rows[:q.Limit]
	}
	return rows, nil
}
