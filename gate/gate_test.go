package gate_test

import (
	"context"
	"errors"
	"testing"

	"github.com/diewo77/gedoc/gate"
)

type item struct{ locked bool }

func newTestGate() *gate.Gate[uint] {
	r := gate.NewStaticResolver[uint]()
	r.Set(1, gate.NewStaticProfile(1, "super_admin", gate.PermissionSuperAdmin))
	r.Set(2, gate.NewStaticProfile(2, "admin",
		"submission:list", "submission:view", "submission:validate", "submission:reject"))
	r.Set(3, gate.NewStaticProfile(3, "user"))
	return gate.New[uint](r)
}

func TestAuthorizeErrors(t *testing.T) {
	g := newTestGate()
	ctx := context.Background()

	if err := g.Authorize(ctx, 0, gate.ActionList, "submission", nil); !errors.Is(err, gate.ErrUnauthenticated) {
		t.Fatalf("zero user: got %v", err)
	}
	if err := g.Authorize(ctx, 99, gate.ActionList, "submission", nil); !errors.Is(err, gate.ErrForbidden) {
		t.Fatalf("unknown user: got %v", err)
	}
	if err := g.Authorize(ctx, 3, gate.ActionList, "submission", nil); !errors.Is(err, gate.ErrForbidden) {
		t.Fatalf("plain user: got %v", err)
	}
	if err := g.Authorize(ctx, 2, gate.ActionDelete, "submission", nil); !errors.Is(err, gate.ErrForbidden) {
		t.Fatalf("admin delete: got %v", err)
	}
	if err := g.Authorize(ctx, 2, gate.ActionValidate, "submission", nil); err != nil {
		t.Fatalf("admin validate: %v", err)
	}
	if err := g.Authorize(ctx, 1, gate.ActionDelete, "submission", nil); err != nil {
		t.Fatalf("super admin delete: %v", err)
	}
}

func TestPolicyRunsOnlyWithResource(t *testing.T) {
	g := newTestGate()
	g.Register("submission", gate.PolicyFunc[uint](func(_ context.Context, _ uint, a gate.Action, res any) bool {
		it, ok := res.(*item)
		return ok && !(it.locked && a == gate.ActionValidate)
	}))
	ctx := context.Background()

	if !g.Can(ctx, 2, gate.ActionValidate, "submission", nil) {
		t.Error("policy should not run for nil resource")
	}
	if !g.Can(ctx, 2, gate.ActionValidate, "submission", &item{}) {
		t.Error("unlocked item should be validatable")
	}
	if g.Can(ctx, 2, gate.ActionValidate, "submission", &item{locked: true}) {
		t.Error("locked item should be refused")
	}
	if !g.CanProfile(ctx, 2, gate.ActionValidate, "submission") {
		t.Error("CanProfile ignores policies")
	}
}
