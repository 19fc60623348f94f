package reqcontext

import "testing"

func TestEnforce_SkipsWhenColumnAlreadyReferenced(t *testing.T) {
	e := NewScopeEnforcer(nil)
	sql := "SELECT * FROM cur.table WHERE line_item_usage_account_id = '111111111111'"
	got, modified := e.Enforce(sql, []string{"111111111111"})
	if modified {
		t.Error("expected no modification when column already present")
	}
	if got != sql {
		t.Error("expected SQL to be returned unchanged")
	}
}

func TestEnforce_InsertsAfterWhere(t *testing.T) {
	e := NewScopeEnforcer(nil)
	sql := "SELECT * FROM cur.table WHERE line_item_product_code = 'AmazonEC2'"
	got, modified := e.Enforce(sql, []string{"111111111111"})
	if !modified {
		t.Fatal("expected SQL to be modified")
	}
	if !accountFilterRefRe.MatchString(got) {
		t.Errorf("expected account filter column in result, got %q", got)
	}
}

func TestEnforce_InsertsWhereAfterFromWhenNoWhereExists(t *testing.T) {
	e := NewScopeEnforcer(nil)
	sql := "SELECT * FROM cur.table"
	got, modified := e.Enforce(sql, []string{"111111111111"})
	if !modified {
		t.Fatal("expected SQL to be modified")
	}
	if !accountFilterRefRe.MatchString(got) {
		t.Errorf("expected account filter column in result, got %q", got)
	}
}

func TestEnforce_EmptyAllowlistLeavesSQLUnchanged(t *testing.T) {
	e := NewScopeEnforcer(nil)
	sql := "SELECT * FROM cur.table"
	got, modified := e.Enforce(sql, nil)
	if modified || got != sql {
		t.Error("expected no modification with an empty allowlist")
	}
}

func TestEnforce_Idempotent(t *testing.T) {
	e := NewScopeEnforcer(nil)
	sql := "SELECT * FROM cur.table WHERE line_item_product_code = 'AmazonEC2'"
	first, _ := e.Enforce(sql, []string{"111111111111"})
	second, modifiedAgain := e.Enforce(first, []string{"111111111111"})
	if modifiedAgain {
		t.Error("a second Enforce call on already-enforced SQL must be a no-op")
	}
	if first != second {
		t.Error("expected idempotent enforcement")
	}
}

func TestValidate_DeniesAccountOutsideAllowlist(t *testing.T) {
	e := NewScopeEnforcer(nil)
	sql := "SELECT * FROM cur.table WHERE line_item_usage_account_id = '999999999999'"
	ok, reason := e.Validate(sql, []string{"111111111111"})
	if ok {
		t.Fatal("expected denial")
	}
	if reason == "" {
		t.Error("expected a denial reason")
	}
}

func TestValidate_PassesWhenAllLiteralsAllowed(t *testing.T) {
	e := NewScopeEnforcer(nil)
	sql := "SELECT * FROM cur.table WHERE line_item_usage_account_id = '111111111111'"
	ok, _ := e.Validate(sql, []string{"111111111111"})
	if !ok {
		t.Fatal("expected acceptance")
	}
}

func TestValidate_RequiresColumnWhenNoLiteralsPresent(t *testing.T) {
	e := NewScopeEnforcer(nil)
	sql := "SELECT * FROM cur.table WHERE line_item_product_code = 'AmazonEC2'"
	ok, reason := e.Validate(sql, []string{"111111111111"})
	if ok {
		t.Fatal("expected denial when no account literal and no filter column present")
	}
	if reason == "" {
		t.Error("expected a denial reason")
	}
}
