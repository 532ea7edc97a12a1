package store

import (
	"context"
	"fmt"
	"log"

	"biblioteca-mistica/internal/apperr"
	"biblioteca-mistica/internal/realtime"
	"biblioteca-mistica/pkg/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ListPosts returns the newest posts of a kind with author, like set and
// comment count filled in.
func (r *Repository) ListPosts(ctx context.Context, kind models.PostKind, limit int) ([]models.Post, error) {
	return r.listPosts(ctx, r.db.WithContext(ctx).Where("kind = ?", kind), limit)
}

// ListPostsByAuthor returns an author's newest posts of a kind.
func (r *Repository) ListPostsByAuthor(ctx context.Context, authorID uuid.UUID, kind models.PostKind, limit int) ([]models.Post, error) {
	return r.listPosts(ctx, r.db.WithContext(ctx).Where("kind = ? AND author_id = ?", kind, authorID), limit)
}

func (r *Repository) listPosts(ctx context.Context, q *gorm.DB, limit int) ([]models.Post, error) {
	var posts []models.Post
	q = q.Preload("Author").Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&posts).Error; err != nil {
		return nil, fmt.Errorf("list posts: %w", translate(err))
	}
	if err := r.decorate(ctx, posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// decorate fills LikedBy and CommentCount for a page of posts.
func (r *Repository) decorate(ctx context.Context, posts []models.Post) error {
	if len(posts) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, len(posts))
	index := make(map[uuid.UUID]int, len(posts))
	for i := range posts {
		ids[i] = posts[i].ID
		index[posts[i].ID] = i
		posts[i].LikedBy = []uuid.UUID{}
	}

	var likes []models.Like
	if err := r.db.WithContext(ctx).Where("post_id IN ?", ids).Order("created_at ASC").Find(&likes).Error; err != nil {
		return fmt.Errorf("load likes: %w", err)
	}
	for _, l := range likes {
		i := index[l.PostID]
		posts[i].LikedBy = append(posts[i].LikedBy, l.UserID)
	}

	var counts []struct {
		PostID uuid.UUID
		Total  int
	}
	err := r.db.WithContext(ctx).Model(&models.Comment{}).
		Select("post_id, COUNT(*) AS total").
		Where("post_id IN ?", ids).
		Group("post_id").
		Scan(&counts).Error
	if err != nil {
		return fmt.Errorf("count comments: %w", err)
	}
	for _, c := range counts {
		posts[index[c.PostID]].CommentCount = c.Total
	}
	return nil
}

func (r *Repository) GetPost(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	var p models.Post
	if err := r.db.WithContext(ctx).Preload("Author").First(&p, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	posts := []models.Post{p}
	if err := r.decorate(ctx, posts); err != nil {
		return nil, err
	}
	return &posts[0], nil
}

func (r *Repository) CreatePost(ctx context.Context, p *models.Post) error {
	if err := r.db.WithContext(ctx).Omit("Author").Create(p).Error; err != nil {
		return fmt.Errorf("create post: %w", translate(err))
	}
	if err := r.db.WithContext(ctx).Preload("Author").First(p, "id = ?", p.ID).Error; err != nil {
		return fmt.Errorf("reload post: %w", translate(err))
	}
	p.LikedBy = []uuid.UUID{}
	r.emit(ctx, models.TablePosts, realtime.Insert, p, nil)
	return nil
}

// DeletePost removes the post with its likes and comments in one transaction.
func (r *Repository) DeletePost(ctx context.Context, id uuid.UUID) error {
	var post models.Post
	var likes, comments int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&post, "id = ?", id).Error; err != nil {
			return translate(err)
		}
		res := tx.Where("post_id = ?", id).Delete(&models.Like{})
		if res.Error != nil {
			return fmt.Errorf("delete likes: %w", res.Error)
		}
		likes = res.RowsAffected
		res = tx.Where("post_id = ?", id).Delete(&models.Comment{})
		if res.Error != nil {
			return fmt.Errorf("delete comments: %w", res.Error)
		}
		comments = res.RowsAffected
		if err := tx.Delete(&models.Post{}, "id = ?", id).Error; err != nil {
			return fmt.Errorf("delete post: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	log.Printf("🗑️ [STORE] Deleted %s post %s (%d likes, %d comments)", post.Kind, id, likes, comments)
	r.emit(ctx, models.TablePosts, realtime.Delete, nil, post)
	return nil
}

// HasLiked re-reads membership from the table.
func (r *Repository) HasLiked(ctx context.Context, postID, userID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Like{}).
		Where("post_id = ? AND user_id = ?", postID, userID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("check like: %w", err)
	}
	return count > 0, nil
}

// AddLike inserts a like. A second like by the same user returns
// apperr.ErrDuplicate.
func (r *Repository) AddLike(ctx context.Context, l *models.Like) error {
	if err := r.db.WithContext(ctx).Create(l).Error; err != nil {
		return translate(err)
	}
	r.emit(ctx, models.TableLikes, realtime.Insert, l, nil)
	return nil
}

// RemoveLike deletes the user's like; removing a missing like is a no-op.
func (r *Repository) RemoveLike(ctx context.Context, postID, userID uuid.UUID) error {
	var removed []models.Like
	err := r.db.WithContext(ctx).
		Where("post_id = ? AND user_id = ?", postID, userID).
		Find(&removed).Error
	if err != nil {
		return fmt.Errorf("find like: %w", err)
	}
	if len(removed) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Where("post_id = ? AND user_id = ?", postID, userID).Delete(&models.Like{}).Error; err != nil {
		return fmt.Errorf("delete like: %w", err)
	}
	for i := range removed {
		r.emit(ctx, models.TableLikes, realtime.Delete, nil, removed[i])
	}
	return nil
}

// ListComments returns a post's comments oldest first.
func (r *Repository) ListComments(ctx context.Context, postID uuid.UUID) ([]models.Comment, error) {
	var comments []models.Comment
	err := r.db.WithContext(ctx).
		Preload("Author").
		Where("post_id = ?", postID).
		Order("created_at ASC").
		Find(&comments).Error
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	return comments, nil
}

// AddComment inserts a comment and reloads it with its author.
func (r *Repository) AddComment(ctx context.Context, c *models.Comment) error {
	if err := r.db.WithContext(ctx).Omit("Author").Create(c).Error; err != nil {
		return fmt.Errorf("create comment: %w", translate(err))
	}
	if err := r.db.WithContext(ctx).Preload("Author").First(c, "id = ?", c.ID).Error; err != nil {
		return fmt.Errorf("reload comment: %w", translate(err))
	}
	r.emit(ctx, models.TableComments, realtime.Insert, c, nil)
	return nil
}

// LookupPost loads a post without relations, for checks before writing
// likes and comments.
func (r *Repository) LookupPost(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	var p models.Post
	if err := r.db.WithContext(ctx).Select("id", "kind", "author_id", "title", "body").First(&p, "id = ?", id).Error; err != nil {
		if translate(err) == apperr.ErrNotFound {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("find post: %w", err)
	}
	return &p, nil
}
