package exploit

import (
	"regexp"
	"strings"

	"github.com/pentestflow/pentestflow/pkg/regexcache"
)

// Signature is a database error pattern.
type Signature struct {
	DBMS    string
	Pattern *regexp.Regexp
}

// Signatures are checked in order; vendor-specific patterns come before
// the generic ones so the reported DBMS is as specific as possible.
var defaultSignatures = []Signature{
	{"MySQL", regexcache.MustGet(`(?i)SQL syntax.*MySQL`)},
	{"MySQL", regexcache.MustGet(`(?i)Warning.*mysql_`)},
	{"MySQL", regexcache.MustGet(`(?i)You have an error in your SQL syntax`)},
	{"MySQL", regexcache.MustGet(`(?i)com\.mysql\.jdbc`)},
	{"PostgreSQL", regexcache.MustGet(`(?i)PostgreSQL.*ERROR`)},
	{"PostgreSQL", regexcache.MustGet(`(?i)Warning.*\Wpg_`)},
	{"PostgreSQL", regexcache.MustGet(`(?i)ERROR:\s*syntax error at or near`)},
	{"PostgreSQL", regexcache.MustGet(`(?i)org\.postgresql\.util\.PSQLException`)},
	{"MSSQL", regexcache.MustGet(`(?i)Driver.*SQL[\-\_\ ]*Server`)},
	{"MSSQL", regexcache.MustGet(`(?i)OLE DB.*SQL Server`)},
	{"MSSQL", regexcache.MustGet(`(?i)Unclosed quotation mark after`)},
	{"MSSQL", regexcache.MustGet(`(?i)Msg \d+, Level \d+, State \d+`)},
	{"Oracle", regexcache.MustGet(`(?i)\bORA-[0-9]{4,}`)},
	{"Oracle", regexcache.MustGet(`(?i)quoted string not properly terminated`)},
	{"SQLite", regexcache.MustGet(`(?i)SQLite.*error`)},
	{"SQLite", regexcache.MustGet(`(?i)SQLite3::`)},
	{"SQLite", regexcache.MustGet(`(?i)\[SQLITE_ERROR\]`)},
	{"Generic", regexcache.MustGet(`(?i)SQL syntax`)},
	{"Generic", regexcache.MustGet(`(?i)java\.sql\.SQLException`)},
	{"Generic", regexcache.MustGet(`(?i)Incorrect syntax near`)},
	{"Generic", regexcache.MustGet(`(?i)Unexpected end of command`)},
}

// DefaultSignatures returns a copy of the built-in signature list.
func DefaultSignatures() []Signature {
	return append([]Signature(nil), defaultSignatures...)
}

// CompileSignatures turns user-supplied patterns into Signatures tagged
// with dbms.
func CompileSignatures(dbms string, patterns ...string) ([]Signature, error) {
	res, err := regexcache.CompileAll(patterns...)
	if err != nil {
		return nil, err
	}
	out := make([]Signature, len(res))
	for i, re := range res {
		out[i] = Signature{DBMS: dbms, Pattern: re}
	}
	return out, nil
}

// evidenceContext is how many bytes around a match are kept as evidence.
const evidenceContext = 40

// MatchSQLError returns the first signature matching body and a snippet
// around the match.
func MatchSQLError(body string, sigs []Signature) (Signature, string, bool) {
	for _, sig := range sigs {
		loc := sig.Pattern.FindStringIndex(body)
		if loc == nil {
			continue
		}
		start := max(loc[0]-evidenceContext, 0)
		end := min(loc[1]+evidenceContext, len(body))
		snippet := strings.ToValidUTF8(body[start:end], "")
		return sig, strings.Join(strings.Fields(snippet), " "), true
	}
	return Signature{}, "", false
}
