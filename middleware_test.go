package bcycle_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/advdv/bcycle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrap(t *testing.T) {
	hdlr1 := bcycle.HandlerFunc(func(context.Context, *bcycle.Request) error { return nil })

	t.Run("should just return the handler without middleware", func(t *testing.T) {
		hdlr2 := bcycle.Wrap(hdlr1)
		assert.Equal(t, fmt.Sprint(hdlr1), fmt.Sprint(hdlr2)) // compare addrs
	})

	t.Run("should wrap in the correct order", func(t *testing.T) {
		var res string
		mw := func(s string) bcycle.Middleware {
			return func(next bcycle.Handler) bcycle.Handler {
				return bcycle.HandlerFunc(func(ctx context.Context, r *bcycle.Request) error {
					res += s
					return next.ServeCycle(ctx, r)
				})
			}
		}

		h := bcycle.Wrap(bcycle.HandlerFunc(func(context.Context, *bcycle.Request) error {
			res += "h"
			return nil
		}), mw("1"), mw("2"), mw("3"))

		require.NoError(t, h.ServeCycle(t.Context(), nil))
		assert.Equal(t, "123h", res)
	})
}
