package main

import (
	"bytes"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestRenderConfigRoundTrip(t *testing.T) {
	data, err := renderConfig(defaults)
	if err != nil {
		t.Fatalf("renderConfig failed: %v", err)
	}

	text := string(data)
	for _, want := range []string{
		"# kdex configuration",
		"# SQLite catalog file",
		"db: kpop.db",
		"# Directory for JSONL event logs",
		"busy_timeout_ms: 5000",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("rendered config missing %q:\n%s", want, text)
		}
	}

	var decoded fileConfig
	if err := yaml.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("rendered config is not valid YAML: %v", err)
	}
	if decoded != defaults {
		t.Errorf("round trip changed values: got %+v, want %+v", decoded, defaults)
	}
}

func TestTableAlignsWideRunes(t *testing.T) {
	tbl := newTable("ID", "GROUP", "COMPANY")
	tbl.add("1", "소녀시대", "SM")
	tbl.add("12", "TWICE", "JYP")

	var buf bytes.Buffer
	tbl.write(&buf)

	want := "ID  GROUP     COMPANY\n" +
		"--  --------  -------\n" +
		"1   소녀시대  SM\n" +
		"12  TWICE     JYP\n"
	if buf.String() != want {
		t.Errorf("unexpected table:\n%s\nwant:\n%s", buf.String(), want)
	}
}

func TestParseID(t *testing.T) {
	if id, err := parseID(" 42 "); err != nil || id != 42 {
		t.Errorf("parseID(42) = %d, %v", id, err)
	}
	for _, bad := range []string{"", "0", "-3", "TWICE"} {
		if _, err := parseID(bad); err == nil {
			t.Errorf("parseID(%q) should fail", bad)
		}
	}
}
