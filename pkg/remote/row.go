package remote

import (
	"fmt"
	"time"
)

// OwnerColumn returns the column holding the owner's user id for table.
func OwnerColumn(table string) string {
	if table == TableFollows {
		return "follower_id"
	}
	return "user_id"
}

// DecodeRow converts a JSON row returned by a backend into an Item. The id,
// owner and created_at columns are lifted out of Fields.
func DecodeRow(table string, row map[string]any) (Item, error) {
	id, _ := row["id"].(string)
	if id == "" {
		return Item{}, fmt.Errorf("%s row without id", table)
	}

	item := Item{
		ID:     id,
		Fields: make(map[string]any, len(row)),
	}
	ownerCol := OwnerColumn(table)
	for k, v := range row {
		switch k {
		case "id":
		case ownerCol:
			item.OwnerID, _ = v.(string)
		case "created_at":
			ts, err := parseTime(v)
			if err != nil {
				return Item{}, fmt.Errorf("%s row %s: %w", table, id, err)
			}
			item.CreatedAt = ts
		default:
			item.Fields[k] = v
		}
	}
	return item, nil
}

// DecodeRows decodes a list of rows, failing on the first bad one.
func DecodeRows(table string, rows []map[string]any) ([]Item, error) {
	items := make([]Item, 0, len(rows))
	for _, row := range rows {
		item, err := DecodeRow(table, row)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func parseTime(v any) (time.Time, error) {
	switch t := v.(type) {
	case nil:
		return time.Time{}, nil
	case string:
		ts, err := time.Parse(time.RFC3339Nano, t)
		if err != nil {
			return time.Time{}, fmt.Errorf("bad created_at %q: %w", t, err)
		}
		return ts, nil
	case float64:
		// unix milliseconds
		return time.UnixMilli(int64(t)).UTC(), nil
	default:
		return time.Time{}, fmt.Errorf("bad created_at type %T", v)
	}
}
