package actorctx

import (
	"context"
	"testing"

	"github.com/geocoder89/storefront/internal/domain/user"
)

func TestIdentityRoundTrip(t *testing.T) {
	ctx := WithIdentity(context.Background(), user.Identity{ID: "u1", Name: "Ada", Email: "ada@example.com"})

	id, ok := IdentityFrom(ctx)
	if !ok || id.Name != "Ada" {
		t.Fatalf("got %+v ok=%v", id, ok)
	}

	uid, ok := UserIDFrom(ctx)
	if !ok || uid != "u1" {
		t.Fatalf("got %q ok=%v", uid, ok)
	}
}

func TestIdentityMissing(t *testing.T) {
	if _, ok := IdentityFrom(context.Background()); ok {
		t.Fatalf("expected no identity")
	}

	if _, ok := UserIDFrom(WithIdentity(context.Background(), user.Identity{})); ok {
		t.Fatalf("empty identity must not count")
	}
}
