package httpapi

import (
	"context"

	"github.com/wayfarer-travel/wayfarer-api/internal/domain"
)

type userKey struct{}
type deviceKey struct{}

func WithUser(ctx context.Context, id domain.UserID) context.Context {
	return context.WithValue(ctx, userKey{}, id)
}

func UserFromContext(ctx context.Context) (domain.UserID, bool) {
	v, ok := ctx.Value(userKey{}).(domain.UserID)
	return v, ok && v != ""
}

func WithDevice(ctx context.Context, id domain.DeviceID) context.Context {
	return context.WithValue(ctx, deviceKey{}, id)
}

func DeviceFromContext(ctx context.Context) (domain.DeviceID, bool) {
	v, ok := ctx.Value(deviceKey{}).(domain.DeviceID)
	return v, ok && v != ""
}
