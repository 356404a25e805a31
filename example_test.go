package bcycle_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"

	"github.com/advdv/bcycle"
	"github.com/cockroachdb/errors"
)

func Example() {
	mux := bcycle.NewMux()

	mux.HandleFunc("GET /items/{id}", func(ctx context.Context, r *bcycle.Request) error {
		r.Reply(map[string]string{
			"id":   r.Params["id"],
			"name": "Example Item",
		})
		return nil
	}, bcycle.Named("get-item"))

	// Generate URL by route name
	url, _ := mux.Reverse("get-item", "123")
	fmt.Println("URL:", url)

	// Test the handler
	eng := bcycle.New(bcycle.DefaultConfig(), mux)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/items/42", nil)
	eng.ServeHTTP(rec, req)

	fmt.Println("Status:", rec.Code)
	fmt.Println("Body:", rec.Body.String())
	// Output:
	// URL: /items/123
	// Status: 200
	// Body: {"id":"42","name":"Example Item"}
}

func ExampleNewError() {
	ext := bcycle.NewExtensions()
	ext.Ext(bcycle.OnPreAuth, func(ctx context.Context, r *bcycle.Request) error {
		token := r.Headers.Get("Authorization")
		if token == "" {
			return bcycle.NewError(bcycle.CodeUnauthorized, errors.New("missing token"))
		}
		if token != "Bearer secret" {
			return bcycle.NewError(bcycle.CodeForbidden, errors.New("invalid token"))
		}
		return r.Authenticate(token, nil)
	})

	mux := bcycle.NewMux()
	mux.HandleFunc("GET /protected", func(ctx context.Context, r *bcycle.Request) error {
		r.Reply("welcome")
		return nil
	})

	eng := bcycle.New(bcycle.DefaultConfig(), mux, bcycle.WithExtensions(ext))

	// Request without token
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	eng.ServeHTTP(rec, req)
	fmt.Println("No token:", rec.Code)

	// Request with invalid token
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	eng.ServeHTTP(rec, req)
	fmt.Println("Bad token:", rec.Code)

	// Request with valid token
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer secret")
	eng.ServeHTTP(rec, req)
	fmt.Println("Valid token:", rec.Code)
	// Output:
	// No token: 401
	// Bad token: 403
	// Valid token: 200
}

func ExampleExtensions_Ext() {
	ext := bcycle.NewExtensions()

	// Add a request ID header to every response
	ext.Ext(bcycle.OnPreResponse, func(ctx context.Context, r *bcycle.Request) error {
		r.Response().Header().Set("X-Request-ID", "req-123")
		return nil
	})

	mux := bcycle.NewMux()
	mux.HandleFunc("GET /ping", func(ctx context.Context, r *bcycle.Request) error {
		r.Reply("pong")
		return nil
	})

	eng := bcycle.New(bcycle.DefaultConfig(), mux, bcycle.WithExtensions(ext))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	eng.ServeHTTP(rec, req)

	fmt.Println("Body:", rec.Body.String())
	fmt.Println("Request ID:", rec.Header().Get("X-Request-ID"))
	// Output:
	// Body: pong
	// Request ID: req-123
}

func ExampleRequest_AddTail() {
	mux := bcycle.NewMux()

	done := make(chan struct{})
	mux.HandleFunc("POST /orders", func(ctx context.Context, r *bcycle.Request) error {
		tail := r.AddTail("send-confirmation")
		go func() {
			defer tail()
			<-done
		}()

		r.Reply("accepted").SetCode(http.StatusAccepted)
		return nil
	})

	eng := bcycle.New(bcycle.DefaultConfig(), mux)

	rec := httptest.NewRecorder()
	req := eng.Serve(rec, httptest.NewRequest(http.MethodPost, "/orders", nil), bcycle.RequestOptions{})
	fmt.Println("Status:", rec.Code)
	fmt.Println("Pending:", req.PendingTails())

	close(done)
	<-req.Drained()
	fmt.Println("Drained")
	// Output:
	// Status: 202
	// Pending: [send-confirmation]
	// Drained
}

func ExampleMux_Reverse() {
	mux := bcycle.NewMux()

	mux.HandleFunc("GET /users/{id}", func(ctx context.Context, r *bcycle.Request) error {
		return nil
	}, bcycle.Named("get-user"))

	mux.HandleFunc("GET /users/{userId}/posts/{postId}", func(ctx context.Context, r *bcycle.Request) error {
		return nil
	}, bcycle.Named("get-user-post"))

	url1, _ := mux.Reverse("get-user", "42")
	url2, _ := mux.Reverse("get-user-post", "42", "101")

	fmt.Println(url1)
	fmt.Println(url2)
	// Output:
	// /users/42
	// /users/42/posts/101
}
