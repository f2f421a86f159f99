package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Benny93/schemadoc-go/internal/config"
)

const testBase = `{
  "@context": {"schema": "https://schema.org/", "rdfs": "http://www.w3.org/2000/01/rdf-schema#"},
  "@graph": [
    {"@id": "schema:Thing", "@type": "rdfs:Class", "rdfs:label": "Thing", "rdfs:comment": "The most generic type of item."},
    {"@id": "schema:Person", "@type": "rdfs:Class", "rdfs:label": "Person", "rdfs:comment": "A person.",
     "rdfs:subClassOf": {"@id": "schema:Thing"}},
    {"@id": "schema:Text", "@type": "rdfs:Class", "rdfs:label": "Text", "rdfs:comment": "Data type: Text."},
    {"@id": "schema:name", "@type": "rdf:Property", "rdfs:label": "name", "rdfs:comment": "The name of the item.",
     "schema:domainIncludes": {"@id": "schema:Thing"}, "schema:rangeIncludes": {"@id": "schema:Text"}}
  ]
}`

const testExtension = `- "$type": Class
  name: Agent
  subClassOf: [Thing]
  description: An autonomous software agent.
- "$type": Property
  name: goal
  description: What the agent works towards.
  domainIncludes: [Agent]
  rangeIncludes: [Text]
`

func writeFiles(t *testing.T, files map[string]string) {
	t.Helper()
	for path, content := range files {
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

type project struct {
	dir        string
	base       string
	extensions string
	output     string
}

func setupProject(t *testing.T) project {
	t.Helper()
	dir := t.TempDir()
	p := project{
		dir:        dir,
		base:       filepath.Join(dir, "vocab", "schemaorg.jsonld"),
		extensions: filepath.Join(dir, "vocab", "ext.yaml"),
		output:     filepath.Join(dir, "site"),
	}
	writeFiles(t, map[string]string{p.base: testBase, p.extensions: testExtension})
	return p
}

func (p project) globals() (*Globals, *bytes.Buffer) {
	var out bytes.Buffer
	return &Globals{Dir: p.dir, Quiet: true, Out: &out, Err: &bytes.Buffer{}}, &out
}

func (p project) generate(t *testing.T) {
	t.Helper()
	g, _ := p.globals()
	cmd := &GenerateCmd{
		Sources: SourceFlags{Base: p.base, Extensions: p.extensions},
		Outputs: OutputFlags{Output: p.output, All: true, Format: []string{"md", "json"}},
	}
	require.NoError(t, cmd.Run(g))
}

func TestGenerateCmd_Run(t *testing.T) {
	t.Parallel()

	t.Run("GeneratesCorpusAndIndex", func(t *testing.T) {
		t.Parallel()
		p := setupProject(t)
		p.generate(t)

		assert.FileExists(t, filepath.Join(p.output, "things", "Agent.md"))
		assert.FileExists(t, filepath.Join(p.output, "things", "Person.json"))
		assert.FileExists(t, filepath.Join(p.output, "properties", "goal.md"))
		assert.DirExists(t, filepath.Join(p.dir, IndexDir, "badger"))

		g, _ := p.globals()
		meta, err := readMeta(g)
		require.NoError(t, err)
		assert.Equal(t, 4, meta.Types)
		assert.Equal(t, 2, meta.Properties)
		assert.Equal(t, p.base, meta.Base)
		assert.Len(t, meta.Fingerprint, 64)
	})

	t.Run("ProjectConfig", func(t *testing.T) {
		t.Parallel()
		p := setupProject(t)
		writeFiles(t, map[string]string{
			filepath.Join(p.dir, config.ProjectConfigFile): "base: vocab/schemaorg.jsonld\n" +
				"extensions: vocab/ext.yaml\n" +
				"output: out\n" +
				"formats: [md]\n" +
				"index: false\n" +
				"selection:\n  mode: extensions\n",
		})

		g, _ := p.globals()
		require.NoError(t, (&GenerateCmd{}).Run(g))

		assert.FileExists(t, filepath.Join(p.dir, "out", "things", "Agent.md"))
		assert.NoFileExists(t, filepath.Join(p.dir, "out", "things", "Person.md"))
		assert.NoDirExists(t, filepath.Join(p.dir, IndexDir))
	})

	t.Run("FlagsOverrideConfig", func(t *testing.T) {
		t.Parallel()
		p := setupProject(t)
		g, _ := p.globals()
		cmd := &GenerateCmd{
			Sources: SourceFlags{Base: p.base, Extensions: p.extensions},
			Outputs: OutputFlags{Output: p.output, Types: []string{"Person"}, Format: []string{"json"}},
		}
		require.NoError(t, cmd.Run(g))

		assert.FileExists(t, filepath.Join(p.output, "things", "Person.json"))
		assert.NoFileExists(t, filepath.Join(p.output, "things", "Agent.json"))
	})

	t.Run("MissingBase", func(t *testing.T) {
		t.Parallel()
		p := setupProject(t)
		g, _ := p.globals()
		err := (&GenerateCmd{Outputs: OutputFlags{Output: p.output}}).Run(g)
		assert.Error(t, err)
	})

	t.Run("InvalidStrategy", func(t *testing.T) {
		t.Parallel()
		p := setupProject(t)
		g, _ := p.globals()
		err := (&GenerateCmd{Sources: SourceFlags{Base: p.base, Strategy: "coin-flip"}}).Run(g)
		assert.Error(t, err)
	})
}

func TestQueryCmd_Run(t *testing.T) {
	t.Parallel()

	p := setupProject(t)
	p.generate(t)

	t.Run("FindsExtensionType", func(t *testing.T) {
		g, out := p.globals()
		require.NoError(t, (&QueryCmd{Query: "agent", Limit: 5}).Run(g))
		assert.Contains(t, out.String(), "1. Agent (class, extension)")
		assert.Contains(t, out.String(), "Page: things/Agent")
	})

	t.Run("NoResults", func(t *testing.T) {
		g, out := p.globals()
		require.NoError(t, (&QueryCmd{Query: "zeppelin", Limit: 5}).Run(g))
		assert.Contains(t, out.String(), "No results found")
	})

	t.Run("NoIndex", func(t *testing.T) {
		g := &Globals{Dir: t.TempDir(), Out: &bytes.Buffer{}}
		err := (&QueryCmd{Query: "agent"}).Run(g)
		assert.ErrorContains(t, err, "no index found")
	})
}

func TestShowCmd_Run(t *testing.T) {
	t.Parallel()

	p := setupProject(t)
	p.generate(t)

	t.Run("Type", func(t *testing.T) {
		g, out := p.globals()
		require.NoError(t, (&ShowCmd{Name: "Person"}).Run(g))
		assert.Contains(t, out.String(), "A person.")
	})

	t.Run("Property", func(t *testing.T) {
		g, out := p.globals()
		require.NoError(t, (&ShowCmd{Name: "goal"}).Run(g))
		assert.Contains(t, out.String(), "What the agent works towards.")
	})

	t.Run("Unknown", func(t *testing.T) {
		g, out := p.globals()
		require.NoError(t, (&ShowCmd{Name: "Unicorn"}).Run(g))
		assert.Contains(t, out.String(), "Type 'Unicorn' not found in index")
	})
}

func TestExportCmd_Run(t *testing.T) {
	t.Parallel()

	p := setupProject(t)

	t.Run("Stdout", func(t *testing.T) {
		g, out := p.globals()
		require.NoError(t, (&ExportCmd{Sources: SourceFlags{Base: p.base, Extensions: p.extensions}}).Run(g))
		assert.Contains(t, out.String(), "<https://schema.org/Person>")
		assert.Contains(t, out.String(), "Agent")
	})

	t.Run("File", func(t *testing.T) {
		g, out := p.globals()
		target := filepath.Join(t.TempDir(), "vocab.nq")
		require.NoError(t, (&ExportCmd{Sources: SourceFlags{Base: p.base}, Out: target}).Run(g))
		assert.Empty(t, out.String())

		data, err := os.ReadFile(target)
		require.NoError(t, err)
		assert.Contains(t, string(data), "<https://schema.org/Thing>")
	})
}

func TestStatusCmd_Run(t *testing.T) {
	t.Parallel()

	t.Run("UpToDate", func(t *testing.T) {
		t.Parallel()
		p := setupProject(t)
		p.generate(t)

		g, out := p.globals()
		require.NoError(t, (&StatusCmd{}).Run(g))
		assert.Contains(t, out.String(), "Types:          4")
		assert.Contains(t, out.String(), "(0 dangling)")
		assert.Contains(t, out.String(), "up to date")
	})

	t.Run("DanglingReferences", func(t *testing.T) {
		t.Parallel()
		p := setupProject(t)
		writeFiles(t, map[string]string{p.extensions: testExtension + "- {\"$type\": Property, name: helper, rangeIncludes: [Robot]}\n"})
		p.generate(t)

		g, out := p.globals()
		require.NoError(t, (&StatusCmd{}).Run(g))
		assert.Contains(t, out.String(), "(1 dangling)")
	})

	t.Run("SourcesChanged", func(t *testing.T) {
		t.Parallel()
		p := setupProject(t)
		p.generate(t)
		writeFiles(t, map[string]string{p.extensions: testExtension + "- {\"$type\": Class, name: Planner}\n"})

		g, out := p.globals()
		require.NoError(t, (&StatusCmd{}).Run(g))
		assert.Contains(t, out.String(), "changed since last run")
	})

	t.Run("NoIndex", func(t *testing.T) {
		t.Parallel()
		g := &Globals{Dir: t.TempDir(), Out: &bytes.Buffer{}}
		assert.ErrorContains(t, (&StatusCmd{}).Run(g), "no index found")
	})
}

func TestCleanCmd_Run(t *testing.T) {
	t.Parallel()

	t.Run("Force", func(t *testing.T) {
		t.Parallel()
		p := setupProject(t)
		p.generate(t)

		g, _ := p.globals()
		require.NoError(t, (&CleanCmd{Force: true}).Run(g))
		assert.NoDirExists(t, filepath.Join(p.dir, IndexDir))
		assert.DirExists(t, p.output)
	})

	t.Run("NoIndex", func(t *testing.T) {
		t.Parallel()
		g := &Globals{Dir: t.TempDir(), Out: &bytes.Buffer{}}
		assert.Error(t, (&CleanCmd{Force: true}).Run(g))
	})
}

func TestCLI_Execute(t *testing.T) {
	t.Parallel()

	t.Run("UnknownCommand", func(t *testing.T) {
		t.Parallel()
		assert.Error(t, NewCLI().Execute([]string{"frobnicate"}))
	})

	t.Run("MissingArgument", func(t *testing.T) {
		t.Parallel()
		assert.Error(t, NewCLI().Execute([]string{"query"}))
	})

	t.Run("ConflictingSelection", func(t *testing.T) {
		t.Parallel()
		assert.Error(t, NewCLI().Execute([]string{"generate", "--all", "--extensions-only"}))
	})

	t.Run("Generate", func(t *testing.T) {
		t.Parallel()
		p := setupProject(t)
		cli := NewCLI()
		cli.Out = &bytes.Buffer{}
		cli.Err = &bytes.Buffer{}
		err := cli.Execute([]string{
			"--quiet", "--dir", p.dir,
			"generate", "--base", p.base, "--output", p.output, "--format", "md",
		})
		require.NoError(t, err)
		assert.FileExists(t, filepath.Join(p.output, "things", "Person.md"))
	})
}
