package main

import (
	"bytes"
	"io"
	"strings"
	"testing"
	"time"

	eclipse "github.com/RendaLiu/Solar-Eclipse"
)

func TestReferenceCmd(t *testing.T) {
	var out bytes.Buffer
	root := rootCmd()
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs([]string{"reference", "--epoch", "2017-01-01", "--years", "1"})
	if err := root.Execute(); err != nil {
		t.Fatal(err)
	}
	c, err := eclipse.LoadCatalog(&out)
	if err != nil {
		t.Fatal(err)
	}
	if len(c.Solar) != 2 || len(c.Lunar) != 2 {
		t.Fatalf("unexpected 2017 catalog %+v", c)
	}
}

func TestInvalidConfig(t *testing.T) {
	var errOut bytes.Buffer
	root := rootCmd()
	root.SetOut(io.Discard)
	root.SetErr(&errOut)
	root.SetArgs([]string{"reference", "--epoch", "someday"})
	if err := root.Execute(); err == nil {
		t.Fatal("an unparsable epoch should fail")
	}
	if !strings.Contains(errOut.String(), "subsys=conf") {
		t.Fatalf("the configuration error should be logged: %q", errOut.String())
	}
}

func TestExampleConfig(t *testing.T) {
	ev := eclipse.NewViper()
	if err := eclipse.ReadConfigFile(ev, "eclipse.toml"); err != nil {
		t.Fatal(err)
	}
	cfg, err := eclipse.LoadConfig(ev)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Years != 2 || len(cfg.Auxiliary) != 2 || cfg.Step != time.Hour {
		t.Fatalf("unexpected example configuration %+v", cfg)
	}
}
