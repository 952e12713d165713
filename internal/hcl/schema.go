package hcl

import (
	"github.com/hashicorp/hcl/v2"
)

// rootSchema lists every top-level block a pipeline file may contain.
var rootSchema = &hcl.BodySchema{
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "pipeline", LabelNames: []string{"name"}},
		{Type: "variable", LabelNames: []string{"name"}},
		{Type: "stage", LabelNames: []string{"name"}},
	},
}

// hclVariable is the body of a `variable` block. It is decoded without an
// evaluation context, so defaults must be literals.
type hclVariable struct {
	Default     *string `hcl:"default,optional"`
	Description string  `hcl:"description,optional"`
}

// hclPipeline is the body of the optional `pipeline` block.
type hclPipeline struct {
	Env map[string]string `hcl:"env,optional"`
}

// hclStage is the body of a `stage` block. Fields are pre-populated with
// defaults before decoding; attributes absent from the file keep them.
type hclStage struct {
	DependsOn   []string          `hcl:"depends_on,optional"`
	Parallelism int               `hcl:"parallelism,optional"`
	Checkout    bool              `hcl:"checkout,optional"`
	Shell       []string          `hcl:"shell,optional"`
	Env         map[string]string `hcl:"env,optional"`
	Timeout     string            `hcl:"timeout,optional"`

	Steps   []*hclStep    `hcl:"step,block"`
	Publish []*hclPublish `hcl:"publish,block"`
	Restore []*hclRestore `hcl:"restore,block"`
	Collect []*hclCollect `hcl:"collect,block"`
}

type hclStep struct {
	Name            string            `hcl:"name,label"`
	Run             string            `hcl:"run"`
	Env             map[string]string `hcl:"env,optional"`
	ContinueOnError bool              `hcl:"continue_on_error,optional"`
	Timeout         string            `hcl:"timeout,optional"`
}

type hclPublish struct {
	Name string `hcl:"name,label"`
	Path string `hcl:"path"`
}

type hclRestore struct {
	Name string `hcl:"name,label"`
	Path string `hcl:"path"`
}

type hclCollect struct {
	Name string `hcl:"name,label"`
	From string `hcl:"from"`
	To   string `hcl:"to"`
}
