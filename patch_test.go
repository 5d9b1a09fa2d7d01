package deptree

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestReplaceLeaf(t *testing.T) {
	e, l := testLayout(t)
	support := prodSupport(l)
	mkModuleDir(t, filepath.Join(support, "motor", "6-9"))
	newPath := mkModuleDir(t, filepath.Join(support, "motor", "6-10"))
	ioc := writeRelease(t, filepath.Join(workIOC(l), "BL16I", "MO"),
		"SUPPORT="+support+"\n"+
			"MOTOR=$(SUPPORT)/motor/6-9  # motion stage\n")

	tree := mustBuild(t, ioc, WithEnvironment(e))
	old := tree.Children[0]
	replacement := mustBuild(t, newPath, WithEnvironment(e))

	if err := tree.ReplaceLeaf(old, replacement); err != nil {
		t.Fatalf("ReplaceLeaf() error = %v", err)
	}

	want := "MOTOR=$(SUPPORT)/motor/6-10  # motion stage\n"
	if tree.Lines[1] != want {
		t.Errorf("line = %q, want %q", tree.Lines[1], want)
	}
	if tree.Macros["MOTOR"] != newPath {
		t.Errorf("macro = %q, want %q", tree.Macros["MOTOR"], newPath)
	}
	if tree.Children[0] != replacement || replacement.Parent() != tree {
		t.Error("child not spliced in with parent back-reference")
	}
}

func TestReplaceLeafAbsolutePin(t *testing.T) {
	e, l := testLayout(t)
	support := prodSupport(l)
	oldPath := mkModuleDir(t, filepath.Join(support, "motor", "6-9"))
	newPath := mkModuleDir(t, filepath.Join(support, "motor", "6-10"))
	ioc := writeRelease(t, filepath.Join(workIOC(l), "BL16I", "MO"),
		"MOTOR="+oldPath+"\n")

	tree := mustBuild(t, ioc, WithEnvironment(e))
	replacement := mustBuild(t, newPath, WithEnvironment(e))
	if err := tree.ReplaceLeaf(tree.Children[0], replacement); err != nil {
		t.Fatalf("ReplaceLeaf() error = %v", err)
	}
	// No other macro is a prefix, so the path stays literal.
	if want := "MOTOR=" + newPath + "\n"; tree.Lines[0] != want {
		t.Errorf("line = %q, want %q", tree.Lines[0], want)
	}
}

func TestReplaceLeafNotListed(t *testing.T) {
	e, l := testLayout(t)
	support := prodSupport(l)
	mkModuleDir(t, filepath.Join(support, "motor", "6-9"))
	ioc := writeRelease(t, filepath.Join(workIOC(l), "BL16I", "MO"),
		"SUPPORT="+support+"\n"+
			"MOTOR=$(SUPPORT)/motor/6-9\n")

	tree := mustBuild(t, ioc, WithEnvironment(e))
	stranger := mustBuild(t, filepath.Join(support, "motor", "6-9"), WithEnvironment(e))
	if err := tree.ReplaceLeaf(stranger, stranger); !errors.Is(err, ErrNotListed) {
		t.Errorf("ReplaceLeaf() error = %v, want ErrNotListed", err)
	}
}

func TestReplaceLeafMacroFromInclude(t *testing.T) {
	e, l := testLayout(t)
	support := prodSupport(l)
	mkModuleDir(t, filepath.Join(support, "asyn", "4-21"))
	newPath := mkModuleDir(t, filepath.Join(support, "asyn", "4-26"))
	ioc := filepath.Join(workIOC(l), "BL16I", "MO")
	writeRelease(t, ioc,
		"SUPPORT="+support+"\n"+
			"include extra.release\n")
	if err := os.WriteFile(filepath.Join(ioc, "extra.release"),
		[]byte("ASYN=$(SUPPORT)/asyn/4-21\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	tree := mustBuild(t, ioc, WithEnvironment(e))
	replacement := mustBuild(t, newPath, WithEnvironment(e))
	err := tree.ReplaceLeaf(tree.Children[0], replacement)
	if !errors.Is(err, ErrMacroFromInclude) {
		t.Fatalf("ReplaceLeaf() error = %v, want ErrMacroFromInclude", err)
	}
	// The refused replacement must leave the tree untouched.
	if tree.Children[0].Version != "4-21" {
		t.Errorf("child version = %s, want 4-21", tree.Children[0].Version)
	}
	if strings.Contains(strings.Join(tree.Lines, ""), "4-26") {
		t.Error("config lines modified despite refusal")
	}
}

func TestFoldMacrosPrefersLongestPrefix(t *testing.T) {
	e, l := testLayout(t)
	support := prodSupport(l)
	mkModuleDir(t, filepath.Join(support, "motor", "6-9"))
	newPath := mkModuleDir(t, filepath.Join(support, "motor", "6-10"))
	ioc := writeRelease(t, filepath.Join(workIOC(l), "BL16I", "MO"),
		"PROD="+filepath.Dir(support)+"\n"+
			"SUPPORT=$(PROD)/support\n"+
			"MOTOR=$(SUPPORT)/motor/6-9\n")

	tree := mustBuild(t, ioc, WithEnvironment(e))
	// PROD itself appears as an unclassifiable child; motor is the last one.
	motorNode := tree.Children[len(tree.Children)-1]
	if motorNode.Name != "motor" {
		t.Fatalf("last child = %s, want motor", motorNode.Name)
	}
	replacement := mustBuild(t, newPath, WithEnvironment(e))
	if err := tree.ReplaceLeaf(motorNode, replacement); err != nil {
		t.Fatalf("ReplaceLeaf() error = %v", err)
	}
	if want := "MOTOR=$(SUPPORT)/motor/6-10\n"; tree.Lines[2] != want {
		t.Errorf("line = %q, want %q", tree.Lines[2], want)
	}
}
