package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/ajitpratap0/jsonc/pkg/errors"
	"github.com/ajitpratap0/jsonc/pkg/json"
	"github.com/ajitpratap0/jsonc/pkg/testutil"
)

type CLISuite struct {
	testutil.WorkspaceSuite
	input string
}

func TestCLISuite(t *testing.T) {
	suite.Run(t, new(CLISuite))
}

func (s *CLISuite) SetupSuite() {
	s.WorkspaceSuite.SetupSuite()
	s.input = s.WriteNDJSON("data.ndjson",
		map[string]interface{}{"n": 1, "items": []interface{}{
			map[string]interface{}{"price": 2.5},
			map[string]interface{}{"price": 3},
		}},
		map[string]interface{}{"n": 300, "items": []interface{}{}},
		map[string]interface{}{"n": nil},
		"",
		map[string]interface{}{"n": "x", "items": []interface{}{
			map[string]interface{}{"price": nil},
		}},
	)
}

// run executes one command line against the suite store
func (s *CLISuite) run(args ...string) (string, error) {
	root := newRootCommand()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append([]string{"--dir", s.TempDir(), "--log-level", "error"}, args...))
	err := root.ExecuteContext(s.Context())
	return out.String(), err
}

func (s *CLISuite) TestVersion() {
	out, err := s.run("version")
	s.Require().NoError(err)
	s.Contains(out, "jsonc version "+version)
}

func (s *CLISuite) TestShredThenInspect() {
	out, err := s.run("shred", s.input)
	s.Require().NoError(err)
	s.Contains(out, "stored data.jsnc: 4 rows, 5 columns")

	out, err = s.run("inspect", "--key", "data.jsnc", "--json")
	s.Require().NoError(err)

	var got []columnInfo
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		var info columnInfo
		s.Require().NoError(json.Unmarshal([]byte(line), &info))
		got = append(got, info)
	}
	s.Require().Len(got, 5)

	s.Equal(columnInfo{Path: "$", Type: "object", Entries: 4, Depth: 1}, got[0])
	s.Equal(columnInfo{Path: "items", Type: "array", Entries: 3, Depth: 1}, got[1])
	s.Equal(columnInfo{Path: "items.[]", Type: "object", Entries: 3, Depth: 2}, got[2])
	s.Equal(columnInfo{Path: "items.[].price", Type: "float", Entries: 3, Depth: 2, Nulls: 1}, got[3])
	s.Equal("n", got[4].Path)
	s.Equal("union", got[4].Type)
	s.Equal(4, got[4].Entries)

	out, err = s.run("inspect", "--key", "data.jsnc")
	s.Require().NoError(err)
	s.Contains(out, "rows: 4, columns: 5")
	s.Contains(out, "items.[].price")
}

func (s *CLISuite) TestShredCompressed() {
	out, err := s.run("shred", s.input, "--key", "zstd.jsnc", "--compression", "zstd", "--level", "best")
	s.Require().NoError(err)
	s.Contains(out, "(zstd)")

	out, err = s.run("avg", "--key", "zstd.jsnc", "--path", "items.[].price", "--input", s.input)
	s.Require().NoError(err)
	s.Contains(out, "columnar: mean=2.75 count=2")
	s.Contains(out, "row-wise: mean=2.75 count=2")
}

func (s *CLISuite) TestExport() {
	flat := s.WriteNDJSON("flat.ndjson",
		map[string]interface{}{"id": 1, "name": "a"},
		map[string]interface{}{"id": 2.5, "tags": []interface{}{"x"}},
		map[string]interface{}{"name": nil},
		map[string]interface{}{"id": 4, "name": "d"},
	)
	_, err := s.run("shred", flat, "--key", "export.jsnc")
	s.Require().NoError(err)

	for _, format := range []string{"arrow", "parquet"} {
		out := filepath.Join(s.TempDir(), "flat."+format)
		msg, err := s.run("export", "--key", "export.jsnc", "--format", format, "--out", out)
		s.Require().NoError(err)
		s.Contains(msg, "exported 4 rows, 2 fields")

		info, err := os.Stat(out)
		s.Require().NoError(err)
		s.Positive(info.Size())
	}

	_, err = s.run("export", "--key", "export.jsnc", "--format", "csv", "--out", "x")
	s.Require().Error(err)

	// every column of the shared input is a container or a union
	_, err = s.run("shred", s.input, "--key", "nested.jsnc")
	s.Require().NoError(err)
	_, err = s.run("export", "--key", "nested.jsnc", "--out", filepath.Join(s.TempDir(), "nested.parquet"))
	s.Require().Error(err)
	s.True(errors.IsType(err, errors.ErrorTypeCapability))
}

func (s *CLISuite) TestAvgFromInputOnly() {
	out, err := s.run("avg", "--path", "n", "--input", s.input)
	s.Require().NoError(err)
	s.Contains(out, "count=2")
}

func (s *CLISuite) TestErrors() {
	_, err := s.run("avg", "--path", "n")
	s.Require().Error(err)
	s.True(errors.IsType(err, errors.ErrorTypeValidation))

	_, err = s.run("shred", s.input, "--compression", "brotli")
	s.Require().Error(err)
	s.True(errors.IsType(err, errors.ErrorTypeConfig))

	_, err = s.run("inspect", "--key", "absent.jsnc")
	s.Require().Error(err)
	s.True(errors.IsType(err, errors.ErrorTypeNotFound))

	_, err = s.run("--config", "does-not-exist.yaml", "version")
	s.Require().Error(err)
}
