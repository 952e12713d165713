package runner

import (
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/specialistvlad/stagegrid/internal/config"
)

// Names of the variables injected into every step.
const (
	EnvRunID      = "STAGEGRID_RUN_ID"
	EnvStage      = "STAGEGRID_STAGE"
	EnvShardIndex = "STAGEGRID_SHARD_INDEX"
	EnvShardTotal = "STAGEGRID_SHARD_TOTAL"
	EnvWorkspace  = "STAGEGRID_WORKSPACE"
)

// Environment returns the environment of one step execution as a sorted
// KEY=VALUE list. Identical inputs always produce an identical list.
func (r *Runner) Environment(s *config.Stage, step *config.Step, shard, total int, dir string) []string {
	env := make(map[string]string)
	for _, kv := range r.environ() {
		if k, v, ok := strings.Cut(kv, "="); ok && k != "" {
			env[k] = v
		}
	}
	maps.Copy(env, r.pipelineEnv)
	maps.Copy(env, s.Env)
	maps.Copy(env, step.Env)

	env[EnvRunID] = r.run.ID
	env[EnvStage] = s.Name
	env[EnvShardIndex] = strconv.Itoa(shard)
	env[EnvShardTotal] = strconv.Itoa(total)
	env[EnvWorkspace] = dir

	out := make([]string, 0, len(env))
	for _, k := range slices.Sorted(maps.Keys(env)) {
		out = append(out, k+"="+env[k])
	}
	return out
}
