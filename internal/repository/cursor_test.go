package repository_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Guyuepp/clip-board/internal/repository"
)

func TestCursor(t *testing.T) {
	id, err := repository.DecodeCursor(repository.EncodeCursor(42))
	require.NoError(t, err)
	assert.EqualValues(t, 42, id)

	id, err = repository.DecodeCursor("")
	require.NoError(t, err)
	assert.Zero(t, id)

	_, err = repository.DecodeCursor("%%%")
	assert.Error(t, err)
	_, err = repository.DecodeCursor(repository.EncodeCursor(-3))
	assert.Error(t, err)
}

func TestPageVerify(t *testing.T) {
	for in, want := range map[int64]int64{0: 10, 1: 5, 7: 7, 100: 30} {
		n := in
		repository.PageVerify(&n)
		assert.Equal(t, want, n, "input %d", in)
	}
}
