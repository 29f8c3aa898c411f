package experiment_test

import (
	"chain_orchestrator/internal/experiment"
	"chain_orchestrator/internal/supervisor"
	"chain_orchestrator/internal/topology"
	mock_experiment "chain_orchestrator/mock"
	"chain_orchestrator/pkg/config"
	"chain_orchestrator/pkg/utils"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const testTemplate = `{"downstream_mac": "00:00:00:00:00:00", "log_level": "info", "batch": 32}`

func testConfig(t *testing.T) config.OrchestratorConfig {
	cfg, err := config.ReadOrchestratorConfiguration("")
	require.NoError(t, err)

	dir := t.TempDir()
	template := filepath.Join(dir, "template.cfg")
	require.NoError(t, os.WriteFile(template, []byte(testTemplate), 0644))

	cfg.RunDirectory = filepath.Join(dir, "run")
	cfg.TrafficGenerator.ScriptDirectory = filepath.Join(dir, "run")
	cfg.Experiment.Template = template
	cfg.Experiment.SettleDelay = 0

	return cfg
}

// sameSet matches one specific handle set rather than any deeply equal one.
type sameSet struct {
	set *supervisor.HandleSet
}

func (m sameSet) Matches(x interface{}) bool {
	set, ok := x.(*supervisor.HandleSet)
	return ok && set == m.set
}

func (m sameSet) String() string {
	return fmt.Sprintf("is handle set %p", m.set)
}

func TestRunSequencesPhases(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	cfg := testConfig(t)
	pool := mock_experiment.NewMockWorkerPool(ctrl)
	operator := mock_experiment.NewMockOperator(ctrl)

	workers := supervisor.NewHandleSet()
	var started []supervisor.ProcessSpec

	gomock.InOrder(
		pool.EXPECT().StartAll(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, specs []supervisor.ProcessSpec) *supervisor.HandleSet {
			started = specs
			return workers
		}),
		operator.EXPECT().Confirm(gomock.Any(), experiment.CheckpointDownstream).Return(nil),
		operator.EXPECT().Confirm(gomock.Any(), experiment.CheckpointTraffic).Return(nil),
		operator.EXPECT().Confirm(gomock.Any(), experiment.CheckpointRecord).Return(nil),
		pool.EXPECT().StopAll(sameSet{workers}).Return(nil),
		pool.EXPECT().KillByNamePattern("chain_node").Return(0, nil),
		pool.EXPECT().JoinAll(sameSet{workers}).Return(nil),
	)

	driver, err := experiment.NewDriver(cfg, pool, operator)
	require.NoError(t, err)

	assert.NoError(t, driver.Run(context.Background(), 3))
	assert.Equal(t, experiment.PhaseDone, driver.Phase())

	require.Len(t, started, 3)
	for i, spec := range started {
		path := filepath.Join(cfg.RunDirectory, fmt.Sprintf("chain_node_config_%d.cfg", i))

		assert.Equal(t, i, spec.Index)
		assert.Equal(t, supervisor.RoleWorker, spec.Role)
		assert.Equal(t, cfg.Worker.Binary, spec.Binary)
		assert.Equal(t, []string{"-c", path}, spec.Args)
		assert.True(t, spec.Elevate)
		assert.FileExists(t, path)
		assert.FileExists(t, filepath.Join(cfg.RunDirectory, fmt.Sprintf("startTrafficGen%d.sh", i)))
	}

	assert.NoFileExists(t, driver.ManifestPath())
}

func TestRunWithTrafficGenerators(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	cfg := testConfig(t)
	cfg.TrafficGenerator.Launch = true

	pool := mock_experiment.NewMockWorkerPool(ctrl)
	operator := mock_experiment.NewMockOperator(ctrl)

	workers := supervisor.NewHandleSet()
	traffic := supervisor.NewHandleSet()

	gomock.InOrder(
		pool.EXPECT().StartAll(gomock.Any(), gomock.Len(2)).Return(workers),
		operator.EXPECT().Confirm(gomock.Any(), experiment.CheckpointDownstream).Return(nil),
		pool.EXPECT().StartAll(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, specs []supervisor.ProcessSpec) *supervisor.HandleSet {
			require.Len(t, specs, 2)
			assert.Equal(t, supervisor.RoleTrafficGenerator, specs[1].Role)
			assert.Equal(t, "expect", specs[1].Binary)
			assert.Equal(t, []string{filepath.Join(cfg.RunDirectory, "startTrafficGen1.sh")}, specs[1].Args)
			assert.False(t, specs[1].Elevate)

			return traffic
		}),
		operator.EXPECT().Confirm(gomock.Any(), experiment.CheckpointTraffic).Return(nil),
		operator.EXPECT().Confirm(gomock.Any(), experiment.CheckpointRecord).Return(nil),
		pool.EXPECT().StopAll(sameSet{traffic}).Return(nil),
		pool.EXPECT().KillByNamePattern("startTrafficGen").Return(0, nil),
		pool.EXPECT().StopAll(sameSet{workers}).Return(nil),
		pool.EXPECT().KillByNamePattern("chain_node").Return(0, nil),
		pool.EXPECT().JoinAll(sameSet{traffic}).Return(nil),
		pool.EXPECT().JoinAll(sameSet{workers}).Return(nil),
	)

	driver, err := experiment.NewDriver(cfg, pool, operator)
	require.NoError(t, err)

	assert.NoError(t, driver.Run(context.Background(), 2))
}

func TestRunRejectsInvalidInputWithoutWriting(t *testing.T) {
	tests := []struct {
		name       string
		numServers int
		modify     func(cfg *config.OrchestratorConfig)
	}{
		{name: "zero servers", numServers: 0},
		{name: "too many servers", numServers: 33},
		{name: "bad downstream mac", numServers: 2, modify: func(cfg *config.OrchestratorConfig) {
			cfg.Experiment.DownstreamMAC = "not-a-mac"
		}},
		{name: "bad chain length", numServers: 2, modify: func(cfg *config.OrchestratorConfig) {
			cfg.Experiment.ChainLength = 0
		}},
		{name: "missing template", numServers: 2, modify: func(cfg *config.OrchestratorConfig) {
			cfg.Experiment.Template = filepath.Join(cfg.RunDirectory, "missing.cfg")
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			cfg := testConfig(t)
			if tt.modify != nil {
				tt.modify(&cfg)
			}

			driver, err := experiment.NewDriver(cfg, mock_experiment.NewMockWorkerPool(ctrl), mock_experiment.NewMockOperator(ctrl))
			require.NoError(t, err)

			err = driver.Run(context.Background(), tt.numServers)
			assert.ErrorIs(t, err, topology.ErrInvalidInput)
			assert.NoDirExists(t, cfg.RunDirectory)
		})
	}
}

func TestRunCancelledAtCheckpoint(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	cfg := testConfig(t)
	pool := mock_experiment.NewMockWorkerPool(ctrl)
	operator := mock_experiment.NewMockOperator(ctrl)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	workers := supervisor.NewHandleSet()

	gomock.InOrder(
		pool.EXPECT().StartAll(gomock.Any(), gomock.Any()).Return(workers),
		operator.EXPECT().Confirm(gomock.Any(), experiment.CheckpointDownstream).DoAndReturn(func(ctx context.Context, _ experiment.Checkpoint) error {
			cancel()
			return ctx.Err()
		}),
		pool.EXPECT().StopAll(sameSet{workers}).Return(nil),
		pool.EXPECT().KillByNamePattern("chain_node").Return(1, nil),
		pool.EXPECT().JoinAll(sameSet{workers}).Return(nil),
	)

	driver, err := experiment.NewDriver(cfg, pool, operator)
	require.NoError(t, err)

	err = driver.Run(ctx, 2)
	assert.ErrorIs(t, err, context.Canceled)
	assert.FileExists(t, driver.ManifestPath())
}

func TestRunToleratesStopTimeouts(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	cfg := testConfig(t)
	pool := mock_experiment.NewMockWorkerPool(ctrl)
	operator := mock_experiment.NewMockOperator(ctrl)

	workers := supervisor.NewHandleSet()

	pool.EXPECT().StartAll(gomock.Any(), gomock.Any()).Return(workers)
	operator.EXPECT().Confirm(gomock.Any(), gomock.Any()).Return(nil).Times(3)
	pool.EXPECT().StopAll(workers).Return(&supervisor.ProcessStopTimeoutError{Index: 0, Role: supervisor.RoleWorker, Pid: 42})
	pool.EXPECT().KillByNamePattern(gomock.Any()).Return(0, errors.New("permission denied"))
	pool.EXPECT().JoinAll(workers).Return(nil)

	driver, err := experiment.NewDriver(cfg, pool, operator)
	require.NoError(t, err)

	assert.NoError(t, driver.Run(context.Background(), 1))
}

func TestRunReportsJoinErrors(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	cfg := testConfig(t)
	pool := mock_experiment.NewMockWorkerPool(ctrl)
	operator := mock_experiment.NewMockOperator(ctrl)

	workers := supervisor.NewHandleSet()
	exitErr := &supervisor.ProcessExitError{Index: 1, Role: supervisor.RoleWorker, Pid: 42, Err: errors.New("exit status 1")}

	pool.EXPECT().StartAll(gomock.Any(), gomock.Any()).Return(workers)
	operator.EXPECT().Confirm(gomock.Any(), gomock.Any()).Return(nil).Times(3)
	pool.EXPECT().StopAll(workers).Return(nil)
	pool.EXPECT().KillByNamePattern(gomock.Any()).Return(0, nil)
	pool.EXPECT().JoinAll(workers).Return(exitErr)

	driver, err := experiment.NewDriver(cfg, pool, operator)
	require.NoError(t, err)

	err = driver.Run(context.Background(), 2)

	var reported *supervisor.ProcessExitError
	require.True(t, errors.As(err, &reported))
	assert.Equal(t, 1, reported.Index)
	assert.FileExists(t, driver.ManifestPath())
}

func TestGenerateStartsNothing(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	cfg := testConfig(t)

	driver, err := experiment.NewDriver(cfg, mock_experiment.NewMockWorkerPool(ctrl), mock_experiment.NewMockOperator(ctrl))
	require.NoError(t, err)

	plan, err := driver.Generate(4)
	require.NoError(t, err)

	assert.Len(t, plan.Topology.Nodes, 4)
	assert.Len(t, plan.ConfigFiles, 4)
	assert.Len(t, plan.Scripts, 4)

	for _, path := range append(plan.ConfigFiles, plan.Scripts...) {
		assert.FileExists(t, path)
	}

	assert.NoFileExists(t, filepath.Join(cfg.RunDirectory, utils.ManifestFileName))
}
