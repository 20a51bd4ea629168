package mutation

import (
	"context"

	"github.com/Guyuepp/clip-board/domain"
)

// Pending is a mutation waiting for the server.
type Pending struct {
	PostID int64
	Kind   Kind

	done chan struct{}
	post domain.Post
	err  error
}

func newPending(postID int64, kind Kind) *Pending {
	return &Pending{
		PostID: postID,
		Kind:   kind,
		done:   make(chan struct{}),
	}
}

func (p *Pending) resolve(post domain.Post, err error) {
	p.post = post
	p.err = err
	close(p.done)
}

// Done is closed once the server answered or the write failed.
func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until the mutation resolves or ctx ends. It returns the server's post.
func (p *Pending) Wait(ctx context.Context) (domain.Post, error) {
	select {
	case <-p.done:
		return p.post, p.err
	case <-ctx.Done():
		return domain.Post{}, ctx.Err()
	}
}

// Messages lists the error messages to display, nil while pending or on success.
func (p *Pending) Messages() []string {
	select {
	case <-p.done:
		return domain.ExtractErrorMessages(p.err)
	default:
		return nil
	}
}
