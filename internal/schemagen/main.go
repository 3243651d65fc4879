// Command schemagen writes the JSON schema of a crumbs document kind.
package main

import (
	"flag"
	"log"
	"os"
	"path/filepath"

	"github.com/macropower/crumbs/api/v1beta1/configs"
	"github.com/macropower/crumbs/api/v1beta1/rulesets"
	"github.com/macropower/crumbs/pkg/yaml"
)

const module = "github.com/macropower/crumbs"

var (
	kind    = flag.String("kind", "ruleset", "Document kind, one of: ruleset, config")
	outFile = flag.String("o", "schema.json", "Output file for the generated schema")
	root    = flag.String("root", "../../..", "Path to the module root")
)

// Packages whose doc comments describe each kind's fields.
var kinds = map[string]struct {
	value    any
	packages []string
}{
	"ruleset": {
		value:    rulesets.New(),
		packages: []string{"api/v1beta1/rulesets", "pkg/style"},
	},
	"config": {
		value:    configs.New(),
		packages: []string{"api/v1beta1/configs", "pkg/profile", "pkg/rule"},
	},
}

func main() {
	flag.Parse()

	k, ok := kinds[*kind]
	if !ok {
		log.Fatalf("unknown kind %q", *kind)
	}

	opts := make([]yaml.SchemaOpt, 0, len(k.packages))
	for _, pkg := range k.packages {
		opts = append(opts, yaml.WithComments(module+"/"+pkg, filepath.Join(*root, pkg)))
	}

	jsData, err := yaml.NewSchemaGenerator(k.value, opts...).Generate()
	if err != nil {
		log.Fatalf("generate JSON schema: %v", err)
	}

	err = os.WriteFile(*outFile, jsData, 0o600)
	if err != nil {
		log.Fatalf("write schema file: %v", err)
	}
}
