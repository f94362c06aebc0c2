package detect

// DBMS names the database family a signature points at.
type DBMS string

const (
	MySQL      DBMS = "mysql"
	PostgreSQL DBMS = "postgresql"
	MSSQL      DBMS = "mssql"
	Oracle     DBMS = "oracle"
	SQLite     DBMS = "sqlite"
	DB2        DBMS = "db2"
	Informix   DBMS = "informix"
	Access     DBMS = "access"
	Generic    DBMS = "generic"
)

// Signature is one database error pattern. Patterns are RE2 syntax and are
// matched case-insensitively.
type Signature struct {
	Pattern string
	DBMS    DBMS
}

// Signatures is the fixed table of database error patterns.
var Signatures = []Signature{
	// MySQL
	{`SQL syntax.*MySQL`, MySQL},
	{`Warning.*mysql_`, MySQL},
	{`MySqlClient\.`, MySQL},
	{`check the manual that corresponds to your MySQL`, MySQL},
	{`supplied argument is not a valid MySQL`, MySQL},
	{`com\.mysql\.jdbc\.exceptions`, MySQL},
	{`You have an error in your SQL syntax`, MySQL},
	{`Unknown column`, MySQL},
	{`illegal mix of collations`, MySQL},
	{`truncated incorrect`, MySQL},
	{`XPATH syntax error`, MySQL},

	// PostgreSQL
	{`PostgreSQL.*ERROR`, PostgreSQL},
	{`pg_query\(\): Query failed:`, PostgreSQL},
	{`unterminated quoted string`, PostgreSQL},
	{`unexpected end of SQL command`, PostgreSQL},
	{`Invalid column reference`, PostgreSQL},

	// Microsoft SQL Server
	{`Unclosed quotation mark after the character string`, MSSQL},
	{`Microsoft OLE DB Provider for SQL Server`, MSSQL},
	{`SQL Server Native Client error`, MSSQL},
	{`incorrect syntax near`, MSSQL},
	{`conversion failed when converting`, MSSQL},
	{`subquery returned more than 1 value`, MSSQL},
	{`Ambiguous column name`, MSSQL},
	{`System\.Data\.OleDb\.OleDbException`, MSSQL},
	{`ADODB\.Field error`, MSSQL},

	// Oracle
	{`ORA-00933: SQL command not properly ended`, Oracle},
	{`ORA-00936: missing expression`, Oracle},
	{`ORA-01756: quoted string not properly terminated`, Oracle},
	{`ORA-00921: unexpected end of SQL command`, Oracle},
	{`quoted string not properly terminated`, Oracle},
	{`missing right parenthesis`, Oracle},
	{`invalid number format`, Oracle},

	// SQLite
	{`SQLite/JDBCDriver`, SQLite},
	{`SQLITE_ERROR`, SQLite},
	{`SQL logic error`, SQLite},
	{`Unrecognized token`, SQLite},
	{`Unable to fetch row`, SQLite},

	// DB2
	{`DB2 SQL error:`, DB2},

	// Informix
	{`Informix ODBC Driver`, Informix},

	// Access / Jet
	{`Syntax error in string in query expression`, Access},
	{`Jet database engine error`, Access},

	// Generic ORM, driver and framework text
	{`SQLSTATE\[HY000\]`, Generic},
	{`java\.sql\.SQLException`, Generic},
	{`org\.hibernate\.QueryException`, Generic},
	{`Unterminated string literal`, Generic},
	{`Data truncation`, Generic},
	{`parameter index out of range`, Generic},
	{`Dynamic SQL Error`, Generic},
	{`Invalid SQL statement`, Generic},
	{`fatal error in database engine`, Generic},
	{`Invalid Querystring`, Generic},
	{`Invalid URI`, Generic},
	{`Error Executing Database Query`, Generic},
	{`Invalid SQL data type`, Generic},
	{`Invalid table alias`, Generic},
	{`cannot commit transaction`, Generic},
}
