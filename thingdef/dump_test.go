package thingdef

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
)

const barrelSource = `
actor Barrel
{
	States
	{
	Death:
		BEXP ABC 4 A_Explode(64, 32)
		Stop
	}
}
actor Ball { Damage (random(1, 8)) }
`

func TestTextDump(t *testing.T) {
	var buf bytes.Buffer
	c := NewContext()
	c.Dump = NewTextDump(&buf)
	compile(t, c, `
actor Barrel
{
	States
	{
	Death:
		BEXP ABC 4 A_Explode(64, 32)
		Stop
	}
}`)

	out := buf.String()
	for _, want := range []string{
		" Function Barrel.States[0] (*3) ",
		"Integer regs: 0    Float regs: 0    Address regs: 3    String regs: 0  \nStack size: 6\n",
		"Disassembly of Barrel.States[0]:\n0000  ",
		"A_Explode",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("dump lacks %q:\n%s", want, out)
		}
	}
	if !strings.HasSuffix(out, "\n"+strings.Repeat("*", 73)+"\n28 code bytes\n") {
		t.Errorf("dump trailer wrong:\n%s", out)
	}
}

func TestTextDumpBanner(t *testing.T) {
	var buf bytes.Buffer
	c := NewContext()
	c.Dump = NewTextDump(&buf)
	compile(t, c, `actor Ball { Damage (random(1, 8)) }`)

	label := "Function Ball.Damage"
	marks := strings.Repeat("=", 38-len(label)/2)
	if !strings.Contains(buf.String(), "\n"+marks+" "+label+" "+marks+"\n") {
		t.Errorf("banner not found:\n%s", buf.String())
	}
}

func TestSQLiteDump(t *testing.T) {
	c := NewContext()
	db, err := NewSQLiteDump(filepath.Join(t.TempDir(), "dump.db"))
	if err != nil {
		t.Fatalf("NewSQLiteDump: %v", err)
	}
	defer db.Close()

	var buf bytes.Buffer
	c.Dump = MultiDump{NewTextDump(&buf), db}

	if err := c.Dump.Begin(c.RunID); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	c.ParseSource(Prelude())
	declare(t, c, barrelSource)
	if n := c.FinalizeAll(); n != 0 {
		t.Fatalf("FinalizeAll: %d errors: %v", n, c.Diag.Records())
	}

	labels, err := db.Functions()
	if err != nil {
		t.Fatalf("Functions: %v", err)
	}
	want := []string{"Function Barrel.States[0] (*3)", "Function Ball.Damage"}
	if len(labels) != len(want) {
		t.Fatalf("labels = %v, want %v", labels, want)
	}
	for i := range want {
		if labels[i] != want[i] {
			t.Errorf("label %d = %q, want %q", i, labels[i], want[i])
		}
	}

	var count int
	if err := db.db.QueryRow("SELECT COUNT(*) FROM instructions WHERE run_id = ?", c.RunID.String()).Scan(&count); err != nil {
		t.Fatalf("count instructions: %v", err)
	}
	if count == 0 {
		t.Error("no instructions stored")
	}
	if buf.Len() == 0 {
		t.Error("text sink received nothing")
	}
}

func TestSQLiteDumpRuns(t *testing.T) {
	db, err := NewSQLiteDump(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("NewSQLiteDump: %v", err)
	}
	defer db.Close()

	c := NewContext()
	c.Dump = db
	compile(t, c, barrelSource)
	first := c.RunID
	compile(t, c, `actor Ball { Damage (random(1, 8)) }`)

	labels, err := db.Functions()
	if err != nil {
		t.Fatalf("Functions: %v", err)
	}
	if len(labels) != 1 || labels[0] != "Function Ball.Damage" {
		t.Errorf("second run labels = %v", labels)
	}

	var runs int
	if err := db.db.QueryRow("SELECT COUNT(*) FROM runs WHERE id IN (?, ?) AND code_bytes IS NOT NULL", first.String(), c.RunID.String()).Scan(&runs); err != nil {
		t.Fatalf("count runs: %v", err)
	}
	if runs != 2 {
		t.Errorf("runs recorded = %d, want 2", runs)
	}
}
