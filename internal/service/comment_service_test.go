package service

import (
	"context"
	"strings"
	"testing"

	"alumnihub/internal/models"
	"alumnihub/internal/notifications"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uintPtr(v uint) *uint { return &v }

func TestCommentService_ThreadingIsOneLevel(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()
	owner, ownerActor := env.user(t, 1, models.RoleMember)
	mem, memActor := env.user(t, 1, models.RoleMember)
	c := env.community(t, owner, models.CommunityTypeOpen, openSettings())
	env.member(t, c, mem, models.MembershipRoleMember)

	post, err := env.posts.CreatePost(ctx, ownerActor, CreatePostInput{CommunityID: c.ID, Content: "Homecoming 2026"})
	require.NoError(t, err)
	other, err := env.posts.CreatePost(ctx, ownerActor, CreatePostInput{CommunityID: c.ID, Content: "Elsewhere"})
	require.NoError(t, err)

	top, err := env.comments.CreateComment(ctx, memActor, CreateCommentInput{PostID: post.ID, Content: "Count me in"})
	require.NoError(t, err)
	reply, err := env.comments.CreateComment(ctx, ownerActor, CreateCommentInput{PostID: post.ID, Content: "Great", ParentCommentID: uintPtr(top.ID)})
	require.NoError(t, err)
	_, err = env.comments.CreateComment(ctx, memActor, CreateCommentInput{PostID: post.ID, Content: "Second thread"})
	require.NoError(t, err)

	_, err = env.comments.CreateComment(ctx, memActor, CreateCommentInput{PostID: post.ID, Content: "too deep", ParentCommentID: uintPtr(reply.ID)})
	assertCode(t, err, models.CodeValidation)

	_, err = env.comments.CreateComment(ctx, memActor, CreateCommentInput{PostID: other.ID, Content: "wrong post", ParentCommentID: uintPtr(top.ID)})
	assertCode(t, err, models.CodeValidation)

	_, err = env.comments.CreateComment(ctx, memActor, CreateCommentInput{PostID: post.ID, Content: "orphan", ParentCommentID: uintPtr(99999)})
	assertCode(t, err, models.CodeValidation)

	_, err = env.comments.CreateComment(ctx, memActor, CreateCommentInput{PostID: post.ID, Content: strings.Repeat("x", 10001)})
	assertCode(t, err, models.CodeValidation)

	tree, err := env.comments.ListComments(ctx, memActor, post.ID)
	require.NoError(t, err)
	require.Len(t, tree, 2)
	assert.Equal(t, top.ID, tree[0].ID)
	require.Len(t, tree[0].Replies, 1)
	assert.Equal(t, reply.ID, tree[0].Replies[0].ID)
	assert.Empty(t, tree[1].Replies)
}

func TestCommentService_RequiresApprovedPostAndPermission(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()
	owner, ownerActor := env.user(t, 1, models.RoleMember)
	mem, memActor := env.user(t, 1, models.RoleMember)
	muted, mutedActor := env.user(t, 1, models.RoleMember)
	_, outsider := env.user(t, 1, models.RoleMember)

	gated := openSettings()
	gated.RequirePostApproval = true
	c := env.community(t, owner, models.CommunityTypeOpen, gated)
	env.member(t, c, mem, models.MembershipRoleMember)
	mutedRow := env.member(t, c, muted, models.MembershipRoleMember)
	no := false
	require.NoError(t, env.db.Model(mutedRow).Update("can_comment", &no).Error)

	pending, err := env.posts.CreatePost(ctx, memActor, CreatePostInput{CommunityID: c.ID, Content: "pending"})
	require.NoError(t, err)
	_, err = env.comments.CreateComment(ctx, ownerActor, CreateCommentInput{PostID: pending.ID, Content: "early"})
	assertCode(t, err, models.CodeValidation)

	live, err := env.posts.CreatePost(ctx, ownerActor, CreatePostInput{CommunityID: c.ID, Content: "live"})
	require.NoError(t, err)

	_, err = env.comments.CreateComment(ctx, mutedActor, CreateCommentInput{PostID: live.ID, Content: "hello"})
	assertCode(t, err, models.CodeForbidden)
	_, err = env.comments.CreateComment(ctx, outsider, CreateCommentInput{PostID: live.ID, Content: "drive-by"})
	assertCode(t, err, models.CodeForbidden)

	queued, err := env.comments.CreateComment(ctx, memActor, CreateCommentInput{PostID: live.ID, Content: "needs review"})
	require.NoError(t, err)
	assert.Equal(t, models.ContentStatusPending, queued.Status)

	tree, err := env.comments.ListComments(ctx, mutedActor, live.ID)
	require.NoError(t, err)
	assert.Empty(t, tree)
	tree, err = env.comments.ListComments(ctx, memActor, live.ID)
	require.NoError(t, err)
	assert.Len(t, tree, 1)

	_, err = env.comments.LikeComment(ctx, memActor, queued.ID)
	assertCode(t, err, models.CodeValidation)

	approved, err := env.comments.ApproveComment(ctx, ownerActor, queued.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ContentStatusApproved, approved.Status)
	assert.Equal(t, []notifications.EventType{notifications.EventCommentApproved}, env.notifier.events(mem.ID))
	assert.EqualValues(t, 1, env.countActions(t, models.ActionCommentApprove))

	again, err := env.comments.ApproveComment(ctx, ownerActor, queued.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ContentStatusApproved, again.Status)
	assert.EqualValues(t, 1, env.countActions(t, models.ActionCommentApprove))

	tree, err = env.comments.ListComments(ctx, mutedActor, live.ID)
	require.NoError(t, err)
	assert.Len(t, tree, 1)
}

func TestCommentService_DeleteAndEdit(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()
	owner, ownerActor := env.user(t, 1, models.RoleMember)
	mem, memActor := env.user(t, 1, models.RoleMember)
	peer, peerActor := env.user(t, 1, models.RoleMember)
	c := env.community(t, owner, models.CommunityTypeOpen, openSettings())
	env.member(t, c, mem, models.MembershipRoleMember)
	env.member(t, c, peer, models.MembershipRoleMember)

	post, err := env.posts.CreatePost(ctx, ownerActor, CreatePostInput{CommunityID: c.ID, Content: "thread"})
	require.NoError(t, err)
	first, err := env.comments.CreateComment(ctx, memActor, CreateCommentInput{PostID: post.ID, Content: "first"})
	require.NoError(t, err)
	second, err := env.comments.CreateComment(ctx, memActor, CreateCommentInput{PostID: post.ID, Content: "second"})
	require.NoError(t, err)

	_, err = env.comments.UpdateComment(ctx, peerActor, first.ID, "hijack")
	assertCode(t, err, models.CodeForbidden)
	edited, err := env.comments.UpdateComment(ctx, memActor, first.ID, "  first, edited  ")
	require.NoError(t, err)
	assert.Equal(t, "first, edited", edited.Content)

	err = env.comments.DeleteComment(ctx, peerActor, first.ID, "")
	assertCode(t, err, models.CodeForbidden)

	require.NoError(t, env.comments.DeleteComment(ctx, memActor, first.ID, ""))
	assert.EqualValues(t, 0, env.countActions(t, models.ActionCommentDelete))

	require.NoError(t, env.comments.DeleteComment(ctx, ownerActor, second.ID, "rude"))
	assert.EqualValues(t, 1, env.countActions(t, models.ActionCommentDelete))
	assert.Contains(t, env.publisher.published(), models.ActionCommentDelete)

	err = env.comments.DeleteComment(ctx, ownerActor, second.ID, "")
	assertCode(t, err, models.CodeNotFound)

	tree, err := env.comments.ListComments(ctx, ownerActor, post.ID)
	require.NoError(t, err)
	assert.Empty(t, tree)
}

func TestCommentService_LikesAreIdempotent(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()
	owner, ownerActor := env.user(t, 1, models.RoleMember)
	mem, memActor := env.user(t, 1, models.RoleMember)
	c := env.community(t, owner, models.CommunityTypeOpen, openSettings())
	env.member(t, c, mem, models.MembershipRoleMember)

	post, err := env.posts.CreatePost(ctx, ownerActor, CreatePostInput{CommunityID: c.ID, Content: "thread"})
	require.NoError(t, err)
	cm, err := env.comments.CreateComment(ctx, ownerActor, CreateCommentInput{PostID: post.ID, Content: "nice"})
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		res, err := env.comments.LikeComment(ctx, memActor, cm.ID)
		require.NoError(t, err)
		assert.Equal(t, &LikeResult{Liked: true, LikesCount: 1}, res)
	}
	for i := 0; i < 2; i++ {
		res, err := env.comments.UnlikeComment(ctx, memActor, cm.ID)
		require.NoError(t, err)
		assert.Equal(t, &LikeResult{Liked: false, LikesCount: 0}, res)
	}
}
