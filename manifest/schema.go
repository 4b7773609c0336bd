package manifest

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
)

// schemaSource constrains a decoded, defaulted configuration.
const schemaSource = `
#Duration: =~"^[0-9]+(ms|s|m|h)$"

#Word: {
	name:      =~"^[^,:()\\s]+$"
	body:      string
	summary?:  string
	examples?: [...string]
}

#Config: {
	server: {
		addr:         string & !=""
		"grpc-addr"?: string
		workers:      int & >=1 & <=256
		"log-level":  "error" | "warning" | "notice" | "info" | "debug"
	}
	interpreter: {
		"max-expansions": int & >=1
		"max-values":     int & >=1
	}
	backend: {
		name: "memory" | "sqlite" | "duckdb"
		dsn?: string
	}
	graph: {
		width:  int & >=16 & <=4096
		height: int & >=16 & <=4096
		step:   #Duration
		range:  #Duration
	}
	words?: [...#Word]
	"vocabulary-files"?: [...string]
}
`

// Validate checks m against the configuration schema.
func Validate(m *Manifest) error {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaSource)
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compiling config schema: %w", err)
	}
	config := schema.LookupPath(cue.ParsePath("#Config"))

	value := ctx.Encode(m)
	if err := value.Err(); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := config.Unify(value).Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("invalid configuration: %s", cueerrors.Details(err, nil))
	}
	return nil
}
