/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	stderrors "errors"
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/suparena/sti/errors"
	"github.com/suparena/sti/registry"
	"github.com/suparena/sti/storagemodels"
)

// API is the subset of the DynamoDB client the engine calls. *sdk.Client
// satisfies it.
type API interface {
	PutItem(ctx context.Context, params *sdk.PutItemInput, optFns ...func(*sdk.Options)) (*sdk.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *sdk.UpdateItemInput, optFns ...func(*sdk.Options)) (*sdk.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, params *sdk.DeleteItemInput, optFns ...func(*sdk.Options)) (*sdk.DeleteItemOutput, error)
	Query(ctx context.Context, params *sdk.QueryInput, optFns ...func(*sdk.Options)) (*sdk.QueryOutput, error)
	Scan(ctx context.Context, params *sdk.ScanInput, optFns ...func(*sdk.Options)) (*sdk.ScanOutput, error)
}

// Config holds the connection settings for NewDynamoDBClient.
type Config struct {
	Region string
	// AccessKey and SecretKey select static credentials. When empty the
	// default AWS credential chain is used.
	AccessKey string
	SecretKey string
	// Endpoint overrides the service endpoint, e.g. for DynamoDB Local.
	Endpoint string
}

// Engine implements datastore.Engine on DynamoDB. Each query's Table names
// the DynamoDB table. When the query's base type has a registered index map,
// rows are addressed by the expanded PK/SK templates and GSI attributes are
// written alongside; otherwise the table is keyed by the primary key column.
type Engine struct {
	client  API
	indexes map[string]GSIConfig
	logger  zerolog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithIndexes replaces the default GSI configurations.
func WithIndexes(indexes map[string]GSIConfig) Option {
	return func(e *Engine) {
		e.indexes = maps.Clone(indexes)
	}
}

// WithLogger replaces the global zerolog logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// New creates an Engine over client.
func New(client API, opts ...Option) *Engine {
	e := &Engine{
		client:  client,
		indexes: maps.Clone(DefaultGSIConfigs),
		logger:  log.Logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With().Str("engine", "dynamodb").Logger()
	return e
}

// Open creates a DynamoDB client from cfg and wraps it in an Engine.
func Open(ctx context.Context, cfg Config, opts ...Option) (*Engine, error) {
	client, err := NewDynamoDBClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create DynamoDB client: %w", err)
	}
	return New(client, opts...), nil
}

// NewDynamoDBClient initializes a DynamoDB client.
func NewDynamoDBClient(ctx context.Context, cfg Config) (*sdk.Client, error) {
	loadOpts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	client := sdk.NewFromConfig(awsCfg, func(o *sdk.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	log.Debug().Str("region", cfg.Region).Str("endpoint", cfg.Endpoint).Msg("DynamoDB client initialized")
	return client, nil
}

var macroPattern = regexp.MustCompile(`{([^}]+)}`)

// expandMacros fills every template of indexMap with values from row, e.g.
// "WIDGET#{id}" becomes "WIDGET#7". Templates referencing an attribute that is
// absent, null or not a scalar are left out of the result, which keeps sparse
// GSI attributes off items that cannot fill them.
func expandMacros(indexMap map[string]string, row storagemodels.Row) (map[string]string, error) {
	av, err := attributevalue.MarshalMap(map[string]any(row))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal key attributes: %w", err)
	}

	res := make(map[string]string, len(indexMap))

	for fieldName, template := range indexMap {
		complete := true
		expanded := macroPattern.ReplaceAllStringFunc(template, func(macro string) string {
			key := strings.Trim(macro, "{}")

			switch tv := av[key].(type) {
			case *types.AttributeValueMemberS:
				return tv.Value
			case *types.AttributeValueMemberN:
				return tv.Value
			case *types.AttributeValueMemberBOOL:
				return fmt.Sprintf("%v", tv.Value)
			default:
				complete = false
				return ""
			}
		})
		if complete {
			res[fieldName] = expanded
		}
	}

	return res, nil
}

// macroNames lists the attributes a template references.
func macroNames(template string) []string {
	var names []string
	for _, m := range macroPattern.FindAllStringSubmatch(template, -1) {
		names = append(names, m[1])
	}
	return names
}

// keySchema returns the partition and sort key attribute names of the base
// table for q.
func keySchema(q *storagemodels.Query) (pk, sk string, indexMap map[string]string) {
	if idx, ok := registry.GetIndexMap(q.BaseType); ok {
		sk = ""
		if _, hasSK := idx[SortKeyAttr]; hasSK {
			sk = SortKeyAttr
		}
		return PartitionKeyAttr, sk, idx
	}
	return q.PrimaryKey, "", nil
}

// keyFor builds the DynamoDB key of the item identified by row.
func keyFor(q *storagemodels.Query, row storagemodels.Row) (map[string]types.AttributeValue, error) {
	pk, sk, idx := keySchema(q)
	if idx == nil {
		v := row[q.PrimaryKey]
		if v == nil {
			return nil, errors.NewValidationError(q.PrimaryKey, "primary key is required")
		}
		av, err := attributevalue.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal key: %w", err)
		}
		return map[string]types.AttributeValue{pk: av}, nil
	}

	if _, ok := idx[PartitionKeyAttr]; !ok {
		return nil, fmt.Errorf("%w %s: index map has no %s template", errors.ErrNoIndexMap, q.BaseType, PartitionKeyAttr)
	}

	expanded, err := expandMacros(idx, row)
	if err != nil {
		return nil, err
	}

	key := make(map[string]types.AttributeValue, 2)
	for _, name := range []string{pk, sk} {
		if name == "" {
			continue
		}
		v, ok := expanded[name]
		if !ok || v == "" {
			return nil, errors.NewValidationError(name, "key template "+idx[name]+" cannot be filled")
		}
		key[name] = &types.AttributeValueMemberS{Value: v}
	}
	return key, nil
}

// Insert writes row as a new item. An item with the same key makes it fail
// with an AlreadyExists error.
func (e *Engine) Insert(ctx context.Context, q *storagemodels.Query, row storagemodels.Row) error {
	item := make(map[string]types.AttributeValue, len(row)+4)
	for col, v := range row {
		if v == nil {
			continue
		}
		av, err := attributevalue.Marshal(v)
		if err != nil {
			return fmt.Errorf("failed to marshal attribute %q: %w", col, err)
		}
		item[col] = av
	}

	key, err := keyFor(q, row)
	if err != nil {
		return err
	}
	maps.Copy(item, key)

	pk, _, idx := keySchema(q)
	if idx != nil {
		expanded, err := expandMacros(idx, row)
		if err != nil {
			return err
		}
		for name, v := range expanded {
			item[name] = &types.AttributeValueMemberS{Value: v}
		}
	}

	_, err = e.client.PutItem(ctx, &sdk.PutItemInput{
		TableName:                aws.String(q.Table),
		Item:                     item,
		ConditionExpression:      aws.String("attribute_not_exists(#pk)"),
		ExpressionAttributeNames: map[string]string{"#pk": pk},
	})
	if err != nil {
		if isConditionFailed(err) {
			return errors.NewAlreadyExistsError(q.Table, fmt.Sprint(row[q.PrimaryKey]))
		}
		return fmt.Errorf("PutItem failed: %w", err)
	}
	e.logger.Debug().Str("table", q.Table).Interface("key", row[q.PrimaryKey]).Msg("Put item")
	return nil
}

// Update applies attrs to the item identified by key. Null values remove the
// attribute. GSI attributes whose templates reference an updated column are
// recomputed when every referenced column is part of the update.
func (e *Engine) Update(ctx context.Context, q *storagemodels.Query, key any, attrs storagemodels.Row) error {
	if len(attrs) == 0 {
		return nil
	}

	ref := storagemodels.Row{q.PrimaryKey: key}
	itemKey, err := keyFor(q, ref)
	if err != nil {
		return err
	}

	updates := attrs.Clone()
	pk, sk, idx := keySchema(q)
	if idx != nil {
		merged := attrs.Clone()
		merged[q.PrimaryKey] = key
		expanded, err := expandMacros(idx, merged)
		if err != nil {
			return err
		}
		for name, tpl := range idx {
			if name == pk || name == sk {
				continue
			}
			if v, ok := expanded[name]; ok && referencesAny(tpl, attrs) {
				updates[name] = v
			}
		}
	}

	updateExpr, names, values, err := buildUpdateExpression(updates)
	if err != nil {
		return fmt.Errorf("failed to build update expression: %w", err)
	}
	names["#pk"] = pk

	_, err = e.client.UpdateItem(ctx, &sdk.UpdateItemInput{
		TableName:                 aws.String(q.Table),
		Key:                       itemKey,
		UpdateExpression:          aws.String(updateExpr),
		ConditionExpression:       aws.String("attribute_exists(#pk)"),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
	})
	if err != nil {
		if isConditionFailed(err) {
			return errors.NewNotFoundError(q.Table, fmt.Sprint(key))
		}
		return fmt.Errorf("UpdateItem failed: %w", err)
	}
	e.logger.Debug().Str("table", q.Table).Interface("key", key).Int("attributes", len(updates)).Msg("Updated item")
	return nil
}

// Delete removes the item identified by key. A missing item is a NotFound
// error.
func (e *Engine) Delete(ctx context.Context, q *storagemodels.Query, key any) error {
	itemKey, err := keyFor(q, storagemodels.Row{q.PrimaryKey: key})
	if err != nil {
		return err
	}
	pk, _, _ := keySchema(q)

	_, err = e.client.DeleteItem(ctx, &sdk.DeleteItemInput{
		TableName:                aws.String(q.Table),
		Key:                      itemKey,
		ConditionExpression:      aws.String("attribute_exists(#pk)"),
		ExpressionAttributeNames: map[string]string{"#pk": pk},
	})
	if err != nil {
		if isConditionFailed(err) {
			return errors.NewNotFoundError(q.Table, fmt.Sprint(key))
		}
		return fmt.Errorf("failed to delete item in DynamoDB: %w", err)
	}
	e.logger.Debug().Str("table", q.Table).Interface("key", key).Msg("Deleted item")
	return nil
}

// buildUpdateExpression transforms a map of field->value into:
//   - an "update expression" (e.g., "SET #f0 = :v0 REMOVE #f1")
//   - a corresponding map of expression attribute names
//   - a corresponding map of expression attribute values
//
// Fields are visited in sorted order so the expression is stable.
func buildUpdateExpression(updates storagemodels.Row) (string, map[string]string, map[string]types.AttributeValue, error) {
	if len(updates) == 0 {
		return "", nil, nil, stderrors.New("no updates provided")
	}

	fields := slices.Sorted(maps.Keys(updates))

	var setClauses, removeClauses []string
	exprAttrNames := make(map[string]string, len(fields)+1)
	exprAttrValues := make(map[string]types.AttributeValue, len(fields))

	for i, field := range fields {
		placeholderName := fmt.Sprintf("#f%d", i)
		exprAttrNames[placeholderName] = field

		val := updates[field]
		if val == nil {
			removeClauses = append(removeClauses, placeholderName)
			continue
		}

		placeholderValue := fmt.Sprintf(":v%d", i)
		av, err := attributevalue.Marshal(val)
		if err != nil {
			return "", nil, nil, fmt.Errorf("unhandled update value type for field '%s': %w", field, err)
		}
		exprAttrValues[placeholderValue] = av
		setClauses = append(setClauses, fmt.Sprintf("%s = %s", placeholderName, placeholderValue))
	}

	var parts []string
	if len(setClauses) > 0 {
		parts = append(parts, "SET "+strings.Join(setClauses, ", "))
	}
	if len(removeClauses) > 0 {
		parts = append(parts, "REMOVE "+strings.Join(removeClauses, ", "))
	}
	if len(exprAttrValues) == 0 {
		exprAttrValues = nil
	}
	return strings.Join(parts, " "), exprAttrNames, exprAttrValues, nil
}

func referencesAny(template string, attrs storagemodels.Row) bool {
	for _, name := range macroNames(template) {
		if _, ok := attrs[name]; ok {
			return true
		}
	}
	return false
}

func isConditionFailed(err error) bool {
	var cfe *types.ConditionalCheckFailedException
	return stderrors.As(err, &cfe)
}
