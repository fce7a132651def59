// MindCanvas Insights - SaaS Usage Analytics and Account Health Dashboard
// Copyright 2026 MindCanvas Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mindcanvas/insights/internal/metrics"
)

// FilterOp is a comparison operator supported by the generic query contract.
type FilterOp string

// Supported operators.
const (
	OpEq  FilterOp = "="
	OpGte FilterOp = ">="
	OpLte FilterOp = "<="
)

// Filter is one predicate in a generic query.
type Filter struct {
	Field string
	Op    FilterOp
	Value any
}

// collectionColumns is the allowlist of queryable columns per collection.
// Filters referencing anything else are rejected before touching SQL.
var collectionColumns = map[string]map[string]bool{
	CollectionEvents: {
		"id": true, "event_type": true, "user_id": true,
		"workspace_id": true, "ts": true, "funnel_step": true,
		"status": true, "token_units": true,
	},
	CollectionUsers: {
		"id": true, "plan": true, "signup_at": true,
	},
	CollectionWeeklyActivity: {
		"user_id": true, "week_start": true,
	},
	CollectionMindmaps: {
		"id": true, "user_id": true, "workspace_id": true, "created_at": true,
	},
	CollectionSubscriptions: {
		"id": true, "user_id": true, "workspace_id": true, "ts": true,
	},
}

// buildWhere renders filters into a WHERE clause with positional args.
// Returns "1=1" for an empty filter list.
func buildWhere(collection string, filters []Filter) (string, []any, error) {
	columns, ok := collectionColumns[collection]
	if !ok {
		return "", nil, fmt.Errorf("unknown collection %q", collection)
	}

	clauses := []string{"1=1"}
	args := make([]any, 0, len(filters))
	for _, f := range filters {
		if !columns[f.Field] {
			return "", nil, fmt.Errorf("collection %s has no queryable field %q", collection, f.Field)
		}
		switch f.Op {
		case OpEq, OpGte, OpLte:
		default:
			return "", nil, fmt.Errorf("unsupported filter operator %q", f.Op)
		}
		clauses = append(clauses, fmt.Sprintf("%s %s ?", f.Field, f.Op))
		args = append(args, f.Value)
	}
	return strings.Join(clauses, " AND "), args, nil
}

// Query runs a generic filtered read against a collection and returns the
// raw rows as column-name maps. orderBy must be an allowlisted column or
// empty. Typed accessors are preferred; this exists for the reporting layer's
// ad-hoc needs and for exercising the fallback contract in tests.
func (s *Store) Query(ctx context.Context, collection string, filters []Filter, orderBy string) ([]map[string]any, error) {
	start := time.Now()

	where, args, err := buildWhere(collection, filters)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT * FROM %s WHERE %s", collection, where)
	if orderBy != "" {
		if !collectionColumns[collection][orderBy] {
			return nil, fmt.Errorf("collection %s has no sortable field %q", collection, orderBy)
		}
		query += " ORDER BY " + orderBy + " ASC"
	}

	rows, err := s.conn.QueryContext(ctx, query, args...)
	metrics.ObserveStoreQuery("select", collection, start, err)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", collection, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("columns for %s: %w", collection, err)
	}

	var results []map[string]any
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan %s row: %w", collection, err)
		}
		row := make(map[string]any, len(cols))
		for i, col := range cols {
			row[col] = values[i]
		}
		results = append(results, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s rows: %w", collection, err)
	}
	return results, nil
}
