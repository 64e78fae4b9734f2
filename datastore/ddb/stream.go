/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/suparena/sti/storagemodels"
)

// Stream pages through q and emits rows as they arrive. Rows come in storage
// order; q.Orders only sets the sort key direction of a key query.
func (e *Engine) Stream(ctx context.Context, q *storagemodels.Query, opts ...storagemodels.StreamOption) <-chan storagemodels.StreamResult[storagemodels.Row] {
	// Apply options
	options := storagemodels.DefaultStreamOptions()
	for _, opt := range opts {
		opt(&options)
	}

	// Create buffered result channel
	resultCh := make(chan storagemodels.StreamResult[storagemodels.Row], options.BufferSize)

	// Start streaming in background
	go e.streamWorker(ctx, q, options, resultCh)

	return resultCh
}

// streamWorker handles the actual streaming logic
func (e *Engine) streamWorker(
	ctx context.Context,
	q *storagemodels.Query,
	options storagemodels.StreamOptions,
	resultCh chan<- storagemodels.StreamResult[storagemodels.Row],
) {
	defer close(resultCh)

	// Initialize progress tracking
	var itemIndex int64
	var pageNumber int
	startTime := time.Now()
	var errs []error

	// Progress reporting helper
	reportProgress := func(lastKey map[string]types.AttributeValue) {
		if options.ProgressHandler == nil {
			return
		}
		progress := storagemodels.StreamProgress{
			ItemsProcessed: itemIndex,
			PagesProcessed: pageNumber,
			Errors:         errs,
			StartTime:      startTime,
		}
		if lastKey != nil {
			progress.LastKey = lastKey
		}

		// Calculate rate
		elapsed := time.Since(startTime).Seconds()
		if elapsed > 0 {
			progress.CurrentRate = float64(progress.ItemsProcessed) / elapsed
		}

		options.ProgressHandler(progress)
	}

	send := func(res storagemodels.StreamResult[storagemodels.Row]) bool {
		select {
		case <-ctx.Done():
			return false
		case resultCh <- res:
			return true
		}
	}

	req, err := e.buildRequest(q)
	if err != nil {
		send(storagemodels.StreamResult[storagemodels.Row]{Error: err, Meta: storagemodels.StreamMeta{Timestamp: time.Now()}})
		return
	}

	var lastEvaluatedKey map[string]types.AttributeValue

	for {
		// Check context cancellation
		select {
		case <-ctx.Done():
			return
		default:
		}

		// Execute page fetch with retry logic
		p, err := e.fetchWithRetry(ctx, req, lastEvaluatedKey, options)
		if err != nil {
			meta := storagemodels.StreamMeta{
				Index:      itemIndex,
				PageNumber: pageNumber,
				Timestamp:  time.Now(),
			}
			// Handle error with error handler if provided
			if options.ErrorHandler == nil || !options.ErrorHandler(err) || ctx.Err() != nil {
				send(storagemodels.StreamResult[storagemodels.Row]{Error: fmt.Errorf("query failed: %w", err), Meta: meta})
				return
			}

			// Record error and retry the same page
			errs = append(errs, err)
			continue
		}

		pageNumber++

		// Process items in current page
		for _, item := range p.items {
			result := storagemodels.StreamResult[storagemodels.Row]{
				Meta: storagemodels.StreamMeta{
					Index:      itemIndex,
					PageNumber: pageNumber,
					Timestamp:  time.Now(),
				},
			}
			row, err := req.toRow(item)
			if err != nil {
				result.Error = err
				errs = append(errs, err)
			} else {
				result.Item = row
				result.Raw = row
			}

			if !send(result) {
				return
			}
			itemIndex++

			if q.Limit > 0 && itemIndex >= int64(q.Limit) {
				reportProgress(nil)
				return
			}
		}

		// Report progress after each page
		reportProgress(p.lastKey)

		// Check for more pages
		if len(p.lastKey) == 0 {
			break
		}
		lastEvaluatedKey = p.lastKey
	}
}

// fetchWithRetry executes a page fetch with configurable retry logic
func (e *Engine) fetchWithRetry(
	ctx context.Context,
	req *request,
	startKey map[string]types.AttributeValue,
	options storagemodels.StreamOptions,
) (*page, error) {
	var lastErr error

	for attempt := 0; attempt <= options.MaxRetries; attempt++ {
		// Check context before retry
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		p, err := e.fetch(ctx, req, startKey, options.PageSize)
		if err == nil {
			return p, nil
		}

		lastErr = err

		// Check if error is retryable
		if !isRetryableError(err) {
			return nil, err
		}
		e.logger.Warn().Err(err).Int("attempt", attempt+1).Str("table", req.table).Msg("Retryable DynamoDB error")

		// Don't sleep after last attempt
		if attempt < options.MaxRetries {
			backoff := time.Duration(attempt+1) * options.RetryBackoff
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}
	}

	return nil, fmt.Errorf("query failed after %d retries: %w", options.MaxRetries, lastErr)
}

// isRetryableError determines if a DynamoDB error is retryable
func isRetryableError(err error) bool {
	var (
		throughput *types.ProvisionedThroughputExceededException
		limit      *types.RequestLimitExceeded
		internal   *types.InternalServerError
	)
	if stderrors.As(err, &throughput) || stderrors.As(err, &limit) || stderrors.As(err, &internal) {
		return true
	}

	// Check for AWS SDK retryable errors
	var retryable interface{ IsRetryable() bool }
	if stderrors.As(err, &retryable) {
		return retryable.IsRetryable()
	}

	return false
}
