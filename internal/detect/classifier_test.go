package detect

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// referenceCorpus holds real error strings that must always classify as hits.
var referenceCorpus = []struct {
	body string
	dbms DBMS
}{
	{"You have an error in your SQL syntax; check the manual that corresponds to your MySQL server version", MySQL},
	{"Warning: mysql_fetch_array() expects parameter 1 to be resource", MySQL},
	{"MySqlClient.MySqlException: Unknown column 'x'", MySQL},
	{"com.mysql.jdbc.exceptions.jdbc4.MySQLSyntaxErrorException", MySQL},
	{"PostgreSQL query failed: ERROR:  syntax error at or near", PostgreSQL},
	{"Warning: pg_query(): Query failed: ERROR: unterminated quoted string", PostgreSQL},
	{"Unclosed quotation mark after the character string ''.", MSSQL},
	{"Microsoft OLE DB Provider for SQL Server error '80040e14'", MSSQL},
	{"Incorrect syntax near 'OR'.", MSSQL},
	{"Conversion failed when converting the varchar value 'abc' to data type int.", MSSQL},
	{"ORA-00933: SQL command not properly ended", Oracle},
	{"ORA-01756: quoted string not properly terminated", Oracle},
	{"SQLITE_ERROR: near \"'\": syntax error", SQLite},
	{"SQL logic error or missing database", SQLite},
	{"DB2 SQL error: SQLCODE=-104, SQLSTATE=42601", DB2},
	{"[Informix ODBC Driver][Informix]Unexpected end of statement", Informix},
	{"Syntax error in string in query expression 'id = '1''.", Access},
	{"SQLSTATE[HY000]: General error: 1 near \"'\"", Generic},
	{"java.sql.SQLException: ORA-00936: missing expression", Generic},
	{"org.hibernate.QueryException: unexpected char", Generic},
}

func TestReferenceCorpusMatches(t *testing.T) {
	c := Default()
	for _, tc := range referenceCorpus {
		t.Run(tc.body, func(t *testing.T) {
			assert.True(t, c.MatchesErrorSignature([]byte(tc.body)))
			assert.True(t, c.Classify(500, []byte(tc.body), 0.1))
			_, ok := c.Match([]byte(tc.body))
			assert.True(t, ok)
		})
	}
}

func TestMatchCaseInsensitive(t *testing.T) {
	c := Default()
	assert.True(t, c.MatchesErrorSignature([]byte("YOU HAVE AN ERROR IN YOUR SQL SYNTAX")))
	assert.True(t, c.MatchesErrorSignature([]byte("sqlite_error")))
}

func TestMatchReportsFamily(t *testing.T) {
	c := Default()
	sig, ok := c.Match([]byte("ORA-00936: missing expression"))
	require.True(t, ok)
	assert.Equal(t, Oracle, sig.DBMS)
}

func TestClassifyScenarios(t *testing.T) {
	c := Default()
	tests := []struct {
		name    string
		status  int
		body    string
		elapsed float64
		want    bool
	}{
		{"error pattern", 500, "<b>You have an error in your SQL syntax</b>", 0.30, true},
		{"slow clean response", 200, "<html>ok</html>", 1.60, true},
		{"fast clean response", 200, "<html>ok</html>", 0.20, false},
		{"exactly at threshold", 200, "ok", 1.50, false},
		{"empty body", 204, "", 0, false},
		{"dotted pattern needs the dot", 200, "MySqlClient", 0.1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Classify(tt.status, []byte(tt.body), tt.elapsed))
		})
	}
}

func TestClassifyDeterministic(t *testing.T) {
	c := Default()
	body := []byte("Unknown column 'foo' in 'where clause'")
	first := c.Classify(500, body, 0.4)
	for i := 0; i < 100; i++ {
		assert.Equal(t, first, c.Classify(500, body, 0.4))
	}
}

func TestNewClassifierThresholdBelowTimeout(t *testing.T) {
	_, err := NewClassifier(2*time.Second, 2*time.Second)
	assert.Error(t, err)

	_, err = NewClassifier(0, 2*time.Second)
	assert.Error(t, err)

	c, err := NewClassifier(time.Second, 2*time.Second)
	require.NoError(t, err)
	assert.Equal(t, time.Second, c.Threshold())
	assert.True(t, c.Classify(200, nil, 1.2))
	assert.False(t, c.Classify(200, nil, 0.9))
}

func TestSignatureTableCoverage(t *testing.T) {
	families := map[DBMS]int{}
	for _, s := range Signatures {
		families[s.DBMS]++
	}
	for _, want := range []DBMS{MySQL, PostgreSQL, MSSQL, Oracle, SQLite, DB2, Informix, Generic} {
		assert.Positive(t, families[want], "no signature for %s", want)
	}
	assert.GreaterOrEqual(t, len(Signatures), 50)
}
