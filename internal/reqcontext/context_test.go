package reqcontext

import "testing"

func TestHasAccountAccess_AdminBypassesEverything(t *testing.T) {
	c := &Context{IsAdmin: true}
	if !c.HasAccountAccess("999999999999") {
		t.Error("admin should have access to any account")
	}
}

func TestHasAccountAccess_NonAdminRestrictedToAllowlist(t *testing.T) {
	c := &Context{AllowedAccountIDs: []string{"111111111111"}}
	if !c.HasAccountAccess("111111111111") {
		t.Error("expected access to allowed account")
	}
	if c.HasAccountAccess("222222222222") {
		t.Error("expected no access to an account outside the allowlist")
	}
}

func TestHasAccountAccess_EmptyAllowlistFailsClosed(t *testing.T) {
	c := &Context{IsAdmin: false, AllowedAccountIDs: nil}
	if c.HasAccountAccess("111111111111") {
		t.Error("a non-admin with an empty allowlist must have no account access")
	}
}

func TestGetAccountFilterSQL_EmptyForAdmin(t *testing.T) {
	c := &Context{IsAdmin: true, AllowedAccountIDs: []string{"111111111111"}}
	if got := c.GetAccountFilterSQL(); got != "" {
		t.Errorf("expected empty filter for admin, got %q", got)
	}
}

func TestGetAccountFilterSQL_BuildsInClause(t *testing.T) {
	c := &Context{AllowedAccountIDs: []string{"111111111111", "222222222222"}}
	got := c.GetAccountFilterSQL()
	want := "line_item_usage_account_id IN ('111111111111', '222222222222')"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
