package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	UserKeyPrefix         = "user:%d"
	CommunityKeyPrefix    = "community:%d"
	CategoryListKeyPrefix = "categories:%d:%s"
)

const (
	UserTTL      = 5 * time.Minute
	CommunityTTL = 2 * time.Minute
	CategoryTTL  = 10 * time.Minute
)

func UserKey(userID uint) string {
	return fmt.Sprintf(UserKeyPrefix, userID)
}

func CommunityKey(communityID uint) string {
	return fmt.Sprintf(CommunityKeyPrefix, communityID)
}

// CategoryListKey scopes a category listing to a tenant and entity type.
func CategoryListKey(tenantID uint, entityType string) string {
	return fmt.Sprintf(CategoryListKeyPrefix, tenantID, entityType)
}

func Invalidate(ctx context.Context, keys ...string) {
	if client != nil && len(keys) > 0 {
		client.Del(ctx, keys...)
	}
}

func InvalidateUser(ctx context.Context, userID uint) {
	Invalidate(ctx, UserKey(userID))
}

// InvalidateCommunity drops the cached community. Counter updates and
// settings changes call it after commit.
func InvalidateCommunity(ctx context.Context, communityID uint) {
	Invalidate(ctx, CommunityKey(communityID))
}

func InvalidateCategories(ctx context.Context, tenantID uint, entityType string) {
	Invalidate(ctx, CategoryListKey(tenantID, entityType))
}
