package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"

	"github.com/Guyuepp/clip-board/domain"
)

type postItem struct {
	post domain.Post
}

func (i postItem) Title() string {
	var marks string
	if i.post.Liked {
		marks += "♥ "
	}
	if i.post.Saved {
		marks += "★ "
	}
	return marks + i.post.Title
}

func (i postItem) Description() string {
	parts := []string{fmt.Sprintf("%d likes", i.post.Likes)}
	if name := i.post.User.DisplayName; name != "" {
		parts = append([]string{"by " + name}, parts...)
	}
	if len(i.post.Categories) > 0 {
		names := make([]string, len(i.post.Categories))
		for j, c := range i.post.Categories {
			names[j] = c.DisplayName()
		}
		parts = append(parts, strings.Join(names, ", "))
	}
	if i.post.IsModerated {
		parts = append(parts, "approved")
	}
	return strings.Join(parts, " | ")
}

func (i postItem) FilterValue() string {
	return i.post.Title
}

var _ list.Item = postItem{}

func toItems(posts []domain.Post) []list.Item {
	items := make([]list.Item, len(posts))
	for i := range posts {
		items[i] = postItem{posts[i]}
	}
	return items
}
