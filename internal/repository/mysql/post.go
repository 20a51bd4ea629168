package mysql

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Guyuepp/clip-board/domain"
	"github.com/Guyuepp/clip-board/internal/repository"
	"github.com/Guyuepp/clip-board/internal/repository/mysql/model"
)

type postRepository struct {
	DB *gorm.DB
}

var _ domain.PostRepository = (*postRepository)(nil)

// NewPostRepository creates the mysql backed post repository
func NewPostRepository(db *gorm.DB) *postRepository {
	return &postRepository{db}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (m *postRepository) Fetch(ctx context.Context, viewerID int64, params domain.QueryParams, cursor string) ([]domain.Post, string, error) {
	lastID, err := repository.DecodeCursor(cursor)
	if err != nil {
		return nil, "", domain.ErrBadParamInput
	}
	if (params.Liked || params.Saved) && viewerID == 0 {
		return nil, "", domain.ErrUnauthorized
	}

	num := params.Limit
	repository.PageVerify(&num)

	q := m.DB.WithContext(ctx).Model(&model.Post{})
	if title := strings.TrimSpace(params.TitleQuery); title != "" {
		q = q.Where("title LIKE ?", "%"+likeEscaper.Replace(title)+"%")
	}
	if params.AuthorID != 0 {
		q = q.Where("user_id = ?", params.AuthorID)
	}
	if params.Liked {
		q = q.Where("id IN (?)", m.DB.Model(&model.LikedPost{}).Select("post_id").Where("user_id = ?", viewerID))
	}
	if params.Saved {
		q = q.Where("id IN (?)", m.DB.Model(&model.SavedPost{}).Select("post_id").Where("user_id = ?", viewerID))
	}
	for _, c := range params.Categories {
		q = q.Where("JSON_CONTAINS(categories, JSON_QUOTE(?))", string(c))
	}
	if lastID > 0 {
		q = q.Where("id < ?", lastID)
	}

	// one extra row tells whether another page exists
	var posts []model.Post
	if err := q.Order("id desc").Limit(int(num) + 1).Find(&posts).Error; err != nil {
		return nil, "", err
	}

	var next string
	if int64(len(posts)) > num {
		posts = posts[:num]
		next = repository.EncodeCursor(posts[len(posts)-1].ID)
	}

	res := make([]domain.Post, len(posts))
	for i := range posts {
		res[i] = posts[i].ToDomain()
	}
	return res, next, nil
}

func (m *postRepository) GetByID(ctx context.Context, id int64) (domain.Post, error) {
	var post model.Post
	if err := m.DB.WithContext(ctx).First(&post, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Post{}, domain.ErrNotFound
		}
		return domain.Post{}, err
	}
	return post.ToDomain(), nil
}

func (m *postRepository) FetchViewerState(ctx context.Context, viewerID int64, postIDs []int64) (liked, saved map[int64]bool, err error) {
	liked = make(map[int64]bool)
	saved = make(map[int64]bool)
	if viewerID == 0 || len(postIDs) == 0 {
		return liked, saved, nil
	}

	var likedIDs, savedIDs []int64
	if err = m.DB.WithContext(ctx).Model(&model.LikedPost{}).
		Where("user_id = ? AND post_id IN ?", viewerID, postIDs).
		Pluck("post_id", &likedIDs).Error; err != nil {
		return nil, nil, err
	}
	if err = m.DB.WithContext(ctx).Model(&model.SavedPost{}).
		Where("user_id = ? AND post_id IN ?", viewerID, postIDs).
		Pluck("post_id", &savedIDs).Error; err != nil {
		return nil, nil, err
	}

	for _, id := range likedIDs {
		liked[id] = true
	}
	for _, id := range savedIDs {
		saved[id] = true
	}
	return liked, saved, nil
}

// ApplyPatch returns the row as committed by the same transaction.
func (m *postRepository) ApplyPatch(ctx context.Context, viewerID int64, id int64, patch domain.PostPatch) (domain.Post, error) {
	var res model.Post
	err := m.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var exists model.Post
		if err := tx.Select("id").First(&exists, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrNotFound
			}
			return err
		}

		if patch.Liked != nil {
			if err := setMembership(tx, &model.LikedPost{PostID: id, UserID: viewerID}, *patch.Liked); err != nil {
				return err
			}
		}
		if patch.Saved != nil {
			if err := setMembership(tx, &model.SavedPost{PostID: id, UserID: viewerID}, *patch.Saved); err != nil {
				return err
			}
		}
		if patch.Categories != nil {
			if err := tx.Model(&model.Post{ID: id}).Select("categories").
				Updates(&model.Post{Categories: model.CategoriesToStrings(patch.Categories)}).Error; err != nil {
				return err
			}
		}
		if patch.IsModerated != nil {
			if err := tx.Model(&model.Post{}).Where("id = ?", id).
				UpdateColumn("is_moderated", *patch.IsModerated).Error; err != nil {
				return err
			}
		}

		if patch.Liked != nil {
			var realCount int64
			if err := tx.Model(&model.LikedPost{}).
				Where("post_id = ?", id).
				Count(&realCount).Error; err != nil {
				return err
			}
			if err := tx.Model(&model.Post{}).
				Where("id = ?", id).
				UpdateColumn("likes", realCount).Error; err != nil {
				return err
			}
		}

		return tx.First(&res, "id = ?", id).Error
	})
	if err != nil {
		return domain.Post{}, err
	}
	return res.ToDomain(), nil
}

// setMembership inserts or removes a viewer state row. Both directions are idempotent.
func setMembership(tx *gorm.DB, row any, present bool) error {
	if present {
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(row).Error
	}
	return tx.Delete(row).Error
}

func (m *postRepository) Delete(ctx context.Context, id int64) error {
	return m.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", id).Delete(&model.LikedPost{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", id).Delete(&model.SavedPost{}).Error; err != nil {
			return err
		}

		result := tx.Delete(&model.Post{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return domain.ErrNotFound
		}
		return nil
	})
}
