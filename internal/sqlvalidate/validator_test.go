package sqlvalidate

import "testing"

func TestValidate_AcceptsPlainSelect(t *testing.T) {
	v := New("cur_database.cur_table")
	err := v.Validate("SELECT line_item_product_code, SUM(line_item_unblended_cost) FROM cur_database.cur_table GROUP BY 1")
	if err != nil {
		t.Fatalf("expected acceptance, got %v", err)
	}
}

func TestValidate_AcceptsOuterAggregateWithoutGroupBy(t *testing.T) {
	v := New("cur_database.cur_table")
	err := v.Validate("SELECT SUM(line_item_unblended_cost) AS total FROM cur_database.cur_table")
	if err != nil {
		t.Fatalf("expected acceptance, got %v", err)
	}
}

func TestValidate_AcceptsCTENamedCur(t *testing.T) {
	v := New("cur_database.cur_table")
	sql := `WITH cur AS (SELECT 1 AS x) SELECT * FROM cur`
	if err := v.Validate(sql); err != nil {
		t.Fatalf("expected CTE named 'cur' to be exempt from the table allowlist, got %v", err)
	}
}

func TestValidate_RejectsStackedStatements(t *testing.T) {
	v := New("cur_database.cur_table")
	err := v.Validate("DROP TABLE users; SELECT 1")
	if err == nil {
		t.Fatal("expected rejection on multiple statements")
	}
}

func TestValidate_RejectsDenylistKeyword(t *testing.T) {
	v := New("cur_database.cur_table")
	for _, sql := range []string{
		"DELETE FROM cur_database.cur_table",
		"INSERT INTO cur_database.cur_table VALUES (1)",
		"DROP TABLE cur_database.cur_table",
	} {
		if err := v.Validate(sql); err == nil {
			t.Errorf("expected rejection for %q", sql)
		}
	}
}

func TestValidate_RejectsSchemaInspection(t *testing.T) {
	v := New("cur_database.cur_table")
	for _, sql := range []string{
		"EXPLAIN SELECT * FROM cur_database.cur_table",
		"DESCRIBE cur_database.cur_table",
		"SHOW TABLES",
	} {
		if err := v.Validate(sql); err == nil {
			t.Errorf("expected rejection for %q", sql)
		}
	}
}

func TestValidate_AllowsOrderByDesc(t *testing.T) {
	v := New("cur_database.cur_table")
	err := v.Validate("SELECT * FROM cur_database.cur_table ORDER BY cost_usd DESC LIMIT 5")
	if err != nil {
		t.Fatalf("ORDER BY ... DESC must be accepted, got %v", err)
	}
}

func TestValidate_RejectsNonSelectStart(t *testing.T) {
	v := New("cur_database.cur_table")
	err := v.Validate("UPDATE cur_database.cur_table SET x=1")
	if err == nil {
		t.Fatal("expected rejection")
	}
}

func TestValidate_RejectsOffTableAccess(t *testing.T) {
	v := New("cur_database.cur_table")
	err := v.Validate("SELECT * FROM some_other_table")
	if err == nil {
		t.Fatal("expected rejection for a table outside the allowlist")
	}
}

func TestValidate_RejectsSystemSchema(t *testing.T) {
	v := New("cur_database.cur_table")
	err := v.Validate("SELECT * FROM information_schema.tables")
	if err == nil {
		t.Fatal("expected rejection for information_schema access")
	}
}

func TestValidate_IdempotentVerdict(t *testing.T) {
	v := New("cur_database.cur_table")
	sql := "SELECT * FROM cur_database.cur_table WHERE line_item_usage_account_id = '123456789012'"
	err1 := v.Validate(sql)
	err2 := v.Validate(sql)
	if (err1 == nil) != (err2 == nil) {
		t.Fatal("expected validator to yield the same verdict on repeat calls")
	}
}

func TestSuspiciousPatterns_DetectedNotBlocked(t *testing.T) {
	v := New("cur_database.cur_table")
	sql := "SELECT * FROM cur_database.cur_table UNION SELECT * FROM cur_database.cur_table"
	if err := v.Validate(sql); err != nil {
		t.Fatalf("UNION SELECT should be logged, not blocked: %v", err)
	}
	found := v.SuspiciousPatterns(sql)
	if len(found) == 0 {
		t.Error("expected UNION SELECT to be flagged as suspicious")
	}
}
