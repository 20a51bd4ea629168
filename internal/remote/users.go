package remote

import (
	"context"
	"net/http"

	"github.com/Guyuepp/clip-board/domain"
)

var _ domain.AccountClient = (*PostClient)(nil)

// Me returns the board account of the token holder
func (c *PostClient) Me(ctx context.Context) (domain.User, error) {
	var u domain.User
	if _, err := c.do(ctx, http.MethodGet, "/users/me", nil, &u); err != nil {
		return domain.User{}, err
	}
	return u, nil
}
