package repository

import (
	"encoding/base64"
	"errors"
	"strconv"
)

const (
	DefaultPageNum = 10
	PageMinNum     = 5
	PageMaxNum     = 30
)

var errInvalidCursor = errors.New("invalid cursor")

// EncodeCursor turns the id of the last returned post into an opaque cursor
func EncodeCursor(lastID int64) string {
	return base64.RawURLEncoding.EncodeToString([]byte(strconv.FormatInt(lastID, 10)))
}

// DecodeCursor reverses EncodeCursor. An empty cursor decodes to 0.
func DecodeCursor(cursor string) (int64, error) {
	if cursor == "" {
		return 0, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return 0, errInvalidCursor
	}
	id, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, errInvalidCursor
	}
	return id, nil
}

// PageVerify clamps num into the allowed page size range
func PageVerify(num *int64) {
	if *num <= 0 {
		*num = DefaultPageNum
	}
	if *num < PageMinNum {
		*num = PageMinNum
	}
	if *num > PageMaxNum {
		*num = PageMaxNum
	}
}
