package livefeed

import (
	"fmt"
	"strings"

	cuberrors "github.com/BelikanM/cub/pkg/errors"
	"github.com/BelikanM/cub/pkg/remote"
)

// Schema describes what a client may write to one table.
type Schema struct {
	Table string
	// Required fields must be present and non-empty on create.
	Required []string
	// AnyOf, when set, requires at least one of the fields on create.
	AnyOf []string
	// Mutable lists fields the owner may update after creation.
	Mutable []string
	// Shared lists fields any authenticated user may update.
	Shared []string
}

// Schemas for the three feeds.
var (
	PostSchema = Schema{
		Table:   remote.TablePosts,
		AnyOf:   []string{"content", "image_url"},
		Mutable: []string{"content", "image_url"},
		Shared:  []string{"likes"},
	}
	MediaSchema = Schema{
		Table:    remote.TableMedia,
		Required: []string{"file_path", "file_name"},
		Mutable:  []string{"description"},
	}
	FollowSchema = Schema{
		Table:    remote.TableFollows,
		Required: []string{"followed_id"},
	}
)

// SchemaFor returns the schema of a known table.
func SchemaFor(table string) (Schema, bool) {
	switch table {
	case remote.TablePosts:
		return PostSchema, true
	case remote.TableMedia:
		return MediaSchema, true
	case remote.TableFollows:
		return FollowSchema, true
	default:
		return Schema{}, false
	}
}

// ValidateCreate checks fields before any network call.
func (s Schema) ValidateCreate(fields map[string]any) error {
	for _, name := range s.Required {
		if isBlank(fields[name]) {
			return cuberrors.ValidationError(name, "is required")
		}
	}
	if len(s.AnyOf) > 0 {
		ok := false
		for _, name := range s.AnyOf {
			if !isBlank(fields[name]) {
				ok = true
				break
			}
		}
		if !ok {
			return cuberrors.ValidationError(strings.Join(s.AnyOf, "|"), "nothing to publish")
		}
	}
	return nil
}

func (s Schema) sharedOnly(partial map[string]any) bool {
	if len(partial) == 0 || len(s.Shared) == 0 {
		return false
	}
	for k := range partial {
		if !contains(s.Shared, k) {
			return false
		}
	}
	return true
}

// ValidateUpdate rejects empty partials and fields that aren't updatable.
func (s Schema) ValidateUpdate(partial map[string]any) error {
	if len(partial) == 0 {
		return cuberrors.ValidationError("fields", "nothing to update")
	}
	for k := range partial {
		if !contains(s.Mutable, k) && !contains(s.Shared, k) {
			return cuberrors.ValidationError(k, "is not updatable")
		}
	}
	return nil
}

// OwnerPolicy is the single ownership check run before every mutating call.
type OwnerPolicy struct {
	Schema Schema
}

// CheckCreate rejects rows attributed to someone other than the caller.
func (p OwnerPolicy) CheckCreate(callerID string, fields map[string]any) error {
	if callerID == "" {
		return cuberrors.AuthorizationError("not logged in")
	}
	if owner, ok := fields[remote.OwnerColumn(p.Schema.Table)].(string); ok && owner != "" && owner != callerID {
		return cuberrors.AuthorizationError(fmt.Sprintf("cannot create %s on behalf of another user", p.Schema.Table))
	}
	return nil
}

// Check allows the mutation when callerID owns item, or when partial only
// touches shared fields (like counts). A nil partial means delete.
func (p OwnerPolicy) Check(callerID string, item remote.Item, partial map[string]any) error {
	if callerID == "" {
		return cuberrors.AuthorizationError("not logged in")
	}
	if partial != nil && p.Schema.sharedOnly(partial) {
		return nil
	}
	if item.OwnerID != callerID {
		return cuberrors.AuthorizationError(fmt.Sprintf("%s %s belongs to another user", p.Schema.Table, item.ID))
	}
	return nil
}

func isBlank(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	default:
		return false
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
