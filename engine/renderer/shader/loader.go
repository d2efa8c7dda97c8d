package shader

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
)

// stagePoolWorkers bounds how many stage sources load at once across all callers.
const stagePoolWorkers = 4

// stagePool is shared by every LoadStages call. Its workers live for the life of the process.
var stagePool = sync.OnceValue(func() worker.DynamicWorkerPool {
	return worker.NewDynamicWorkerPool(stagePoolWorkers, 256, 1*time.Second)
})

// LoadStages fetches every requested stage from provider concurrently and collects the
// results. No GPU state is touched; the binaries are returned unvalidated.
//
// Parameters:
//   - provider: the source provider
//   - stages: the stages to load, RequiredStages when empty
//
// Returns:
//   - StageBinaries: the loaded binaries
//   - error: every provider failure joined in stage order
func LoadStages(provider SourceProvider, stages ...ShaderType) (StageBinaries, error) {
	if provider == nil {
		return nil, errors.New("shader: nil source provider")
	}
	if len(stages) == 0 {
		stages = RequiredStages
	}

	binaries := make([]Binary, len(stages))
	errs := make([]error, len(stages))

	pool := stagePool()
	var wg sync.WaitGroup
	for i, stage := range stages {
		wg.Add(1)
		pool.SubmitTask(worker.Task{
			ID: i,
			Do: func() (any, error) {
				defer wg.Done()
				b, err := provider.Source(stage)
				if err != nil {
					errs[i] = fmt.Errorf("shader: load %s: %w", stage, err)
					return nil, nil
				}
				if b.Stage != stage {
					errs[i] = fmt.Errorf("%w: provider returned %s for %s", ErrMalformedShaderBinary, b.Stage, stage)
					return nil, nil
				}
				binaries[i] = b
				return nil, nil
			},
		})
	}
	wg.Wait()

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	out := make(StageBinaries, len(stages))
	for i, stage := range stages {
		out[stage] = binaries[i]
	}
	return out, nil
}
