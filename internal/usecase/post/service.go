package post

import (
	"context"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/Guyuepp/clip-board/domain"
)

type Service struct {
	postRepo domain.PostRepository
	userRepo domain.UserRepository
}

var _ domain.PostUsecase = (*Service)(nil)

// NewService will create a new post service object
func NewService(p domain.PostRepository, u domain.UserRepository) *Service {
	return &Service{
		postRepo: p,
		userRepo: u,
	}
}

func viewerID(viewer *domain.User) int64 {
	if viewer == nil {
		return 0
	}
	return viewer.ID
}

func (s *Service) Fetch(ctx context.Context, viewer *domain.User, params domain.QueryParams, cursor string) (domain.Page, error) {
	if (params.Liked || params.Saved) && viewer == nil {
		return domain.Page{}, domain.ErrUnauthorized
	}
	if len(params.Categories) > 0 {
		cats, err := domain.NormalizeCategories(params.Categories)
		if err != nil {
			return domain.Page{}, err
		}
		params.Categories = cats
	}

	posts, next, err := s.postRepo.Fetch(ctx, viewerID(viewer), params, cursor)
	if err != nil {
		return domain.Page{}, err
	}

	if err := s.fill(ctx, viewerID(viewer), posts); err != nil {
		return domain.Page{}, err
	}
	return domain.Page{Posts: posts, NextCursor: next}, nil
}

// fill resolves owners and viewer state of posts in parallel
func (s *Service) fill(ctx context.Context, viewer int64, posts []domain.Post) error {
	if len(posts) == 0 {
		return nil
	}

	ids := make([]int64, len(posts))
	seen := make(map[int64]bool)
	uids := make([]int64, 0, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
		if !seen[p.User.ID] {
			seen[p.User.ID] = true
			uids = append(uids, p.User.ID)
		}
	}

	var (
		users        []domain.User
		liked, saved map[int64]bool
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		users, err = s.userRepo.GetByIDs(gctx, uids)
		return
	})
	g.Go(func() (err error) {
		liked, saved, err = s.postRepo.FetchViewerState(gctx, viewer, ids)
		return
	})
	if err := g.Wait(); err != nil {
		logrus.Errorf("failed to fill posts: %v", err)
		return err
	}

	mapUsers := make(map[int64]domain.User, len(users))
	for _, u := range users {
		mapUsers[u.ID] = u
	}
	for i := range posts {
		if u, ok := mapUsers[posts[i].User.ID]; ok {
			posts[i].User = u
		}
		posts[i].Liked = liked[posts[i].ID]
		posts[i].Saved = saved[posts[i].ID]
	}
	return nil
}

func (s *Service) Patch(ctx context.Context, viewer domain.User, id int64, patch domain.PostPatch) (domain.Post, error) {
	if patch.IsEmpty() {
		return domain.Post{}, domain.ErrBadParamInput
	}
	if viewer.ID == 0 {
		return domain.Post{}, domain.ErrUnauthorized
	}
	if (patch.Categories != nil || patch.IsModerated != nil) && !viewer.CanModerate() {
		return domain.Post{}, domain.ErrForbidden
	}
	if patch.Categories != nil {
		cats, err := domain.NormalizeCategories(patch.Categories)
		if err != nil {
			return domain.Post{}, err
		}
		patch.Categories = cats
	}

	res, err := s.postRepo.ApplyPatch(ctx, viewer.ID, id, patch)
	if err != nil {
		return domain.Post{}, err
	}
	posts := []domain.Post{res}
	if err := s.fill(ctx, viewer.ID, posts); err != nil {
		return domain.Post{}, err
	}
	return posts[0], nil
}

func (s *Service) Delete(ctx context.Context, viewer domain.User, id int64) error {
	p, err := s.postRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !viewer.CanDelete(p) {
		return domain.ErrForbidden
	}
	return s.postRepo.Delete(ctx, id)
}
