package bcycle_test

import (
	"testing"

	"github.com/advdv/bcycle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReverser(t *testing.T) {
	rev := bcycle.NewReverser()

	t.Run("should allow naming patterns", func(t *testing.T) {
		s := rev.Named("homepage", "/")
		assert.Equal(t, "/", s)

		s, err := rev.NamedPattern("blog_post", "/blog/{id}/comments/{cid:[0-9]+}")
		require.NoError(t, err)
		assert.Equal(t, "/blog/{id}/comments/{cid:[0-9]+}", s)

		rev.Named("files", "/files/*")
	})

	t.Run("should reverse named patterns", func(t *testing.T) {
		res, err := rev.Reverse("homepage")
		require.NoError(t, err)
		assert.Equal(t, "/", res)

		res, err = rev.Reverse("blog_post", "hello world", "12")
		require.NoError(t, err)
		assert.Equal(t, "/blog/hello%20world/comments/12", res)

		res, err = rev.Reverse("files", "a.txt")
		require.NoError(t, err)
		assert.Equal(t, "/files/a.txt", res)
	})

	t.Run("should error if pattern already exists", func(t *testing.T) {
		_, err := rev.NamedPattern("homepage", "/")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "already exists")
	})

	t.Run("should panic for Named error", func(t *testing.T) {
		assert.PanicsWithValue(t, "bcycle: failed to parse pattern: empty pattern", func() {
			rev.Named("bogus", "")
		})
	})

	t.Run("should error on unbalanced braces", func(t *testing.T) {
		_, err := rev.NamedPattern("unbalanced", "/items/{id")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unbalanced braces")
	})

	t.Run("should error if reversing unknown name", func(t *testing.T) {
		_, err := rev.Reverse("bogus")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no pattern named: \"bogus\"")
	})

	t.Run("should error if url building fails", func(t *testing.T) {
		_, err := rev.Reverse("blog_post")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not enough values")

		_, err = rev.Reverse("homepage", "extra")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "too many values")
	})
}
