package models

import (
	"strings"
	"testing"

	"biblioteca-mistica/internal/apperr"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func strPtr(s string) *string { return &s }

func TestUserIsAdmin(t *testing.T) {
	assert.False(t, (*User)(nil).IsAdmin())
	assert.False(t, (&User{}).IsAdmin())
	assert.True(t, (&User{Role: strPtr("admin")}).IsAdmin())
	assert.True(t, (&User{Role: strPtr(" ADMIN ")}).IsAdmin())
	assert.False(t, (&User{Role: strPtr("member")}).IsAdmin())
}

func TestUserCanPublish(t *testing.T) {
	assert.True(t, (&User{IsPublisher: true}).CanPublish())
	assert.True(t, (&User{Role: strPtr("Admin")}).CanPublish())
	assert.False(t, (&User{}).CanPublish())
}

func TestUserLabel(t *testing.T) {
	assert.Equal(t, "Ana", (&User{DisplayName: strPtr("Ana"), Email: "ana@x.io"}).Label())
	assert.Equal(t, "ana", (&User{DisplayName: strPtr("  "), Email: "ana@x.io"}).Label())
	assert.Equal(t, "", (*User)(nil).Label())
}

func TestParsePostKind(t *testing.T) {
	k, err := ParsePostKind("feed")
	assert.NoError(t, err)
	assert.Equal(t, PostKindFeed, k)

	_, err = ParsePostKind("forum")
	assert.Error(t, err)
}

func TestPreferencesAllows(t *testing.T) {
	p := DefaultPreferences(uuid.New())
	assert.True(t, p.Allows(CategoryCommunity, EventLike))

	p.LikesAndComments = false
	assert.False(t, p.Allows(CategoryCommunity, EventLike))
	assert.False(t, p.Allows(CategoryFeed, EventComment))
	assert.True(t, p.Allows(CategoryFeed, EventNew))

	p.FeedPosts = false
	assert.False(t, p.Allows(CategoryFeed, EventNew))
	assert.True(t, p.Allows(CategoryCommunity, EventNew))
	assert.True(t, p.Allows(CategoryModule, EventNew))
}

func TestLikedByUser(t *testing.T) {
	u := uuid.New()
	p := Post{LikedBy: []uuid.UUID{uuid.New(), u}}
	assert.True(t, p.LikedByUser(u))
	assert.False(t, p.LikedByUser(uuid.New()))
}

func TestPostRequestValidate(t *testing.T) {
	long := strings.Repeat("a", MaxFeedTitleLength+1)
	bad := FeedPostType("shout")

	tests := []struct {
		name    string
		kind    PostKind
		req     PostRequest
		wantErr bool
	}{
		{"feed ok", PostKindFeed, PostRequest{Title: strPtr("Aviso"), Body: "corpo"}, false},
		{"feed missing title", PostKindFeed, PostRequest{Body: "corpo"}, true},
		{"feed long title", PostKindFeed, PostRequest{Title: &long, Body: "corpo"}, true},
		{"feed long body", PostKindFeed, PostRequest{Title: strPtr("t"), Body: strings.Repeat("b", MaxFeedBodyLength+1)}, true},
		{"feed bad type", PostKindFeed, PostRequest{Title: strPtr("t"), Body: "b", Type: &bad}, true},
		{"community ok", PostKindCommunity, PostRequest{Body: strings.Repeat("b", MaxCommunityBodyLength)}, false},
		{"community long", PostKindCommunity, PostRequest{Body: strings.Repeat("b", MaxCommunityBodyLength+1)}, true},
		{"blank body", PostKindCommunity, PostRequest{Body: "   "}, true},
		{"unknown kind", PostKind("blog"), PostRequest{Body: "b"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate(tt.kind)
			if tt.wantErr {
				assert.True(t, apperr.IsValidation(err), "got %v", err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateComment(t *testing.T) {
	body, err := ValidateComment("  Que lindo  ")
	assert.NoError(t, err)
	assert.Equal(t, "Que lindo", body)

	_, err = ValidateComment(" \n ")
	assert.True(t, apperr.IsValidation(err))
	_, err = ValidateComment(strings.Repeat("x", MaxCommentLength+1))
	assert.True(t, apperr.IsValidation(err))
}
