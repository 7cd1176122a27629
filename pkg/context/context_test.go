package ctxutil

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestNewRequestContext(t *testing.T) {
	req := httptest.NewRequest("GET", "/todos", nil)
	req.Header.Set("User-Agent", "test-agent")

	ctx := NewRequestContext(context.Background(), req, "req-1", "10.0.0.1")

	assert.Equal(t, "req-1", GetRequestID(ctx))
	assert.Equal(t, "10.0.0.1", GetClientIP(ctx))
	assert.Equal(t, "test-agent", GetUserAgent(ctx))
	assert.False(t, GetStartTime(ctx).IsZero())
}

func TestNewRequestContext_GeneratesRequestID(t *testing.T) {
	ctx := NewRequestContext(context.Background(), nil, "", "")

	_, err := uuid.Parse(GetRequestID(ctx))
	assert.NoError(t, err)
}

func TestWithUserIDAndFunction(t *testing.T) {
	id := uuid.New()
	ctx := WithUserID(context.Background(), id)
	ctx = NewContextWithRequest(ctx, nil, "handler", "Login")

	assert.Equal(t, id.String(), GetUserID(ctx))
	assert.Equal(t, "handler", GetModule(ctx))
	assert.Equal(t, "Login", GetFunction(ctx))
	assert.Empty(t, GetRequestID(ctx))
}
