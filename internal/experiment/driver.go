/*
 * MIT License
 *
 * Copyright (c) 2024 EASL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 */

package experiment

import (
	"chain_orchestrator/internal/emitter"
	"chain_orchestrator/internal/supervisor"
	"chain_orchestrator/internal/topology"
	"chain_orchestrator/internal/trafficgen"
	"chain_orchestrator/pkg/config"
	"chain_orchestrator/pkg/hardware"
	"chain_orchestrator/pkg/utils"
	"context"
	"errors"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"
)

//go:generate mockgen -destination=../../mock/mock_experiment.go -package=mock_experiment chain_orchestrator/internal/experiment Operator,WorkerPool

// WorkerPool starts and tears down the processes of a run.
type WorkerPool interface {
	StartAll(ctx context.Context, specs []supervisor.ProcessSpec) *supervisor.HandleSet
	StopAll(handles *supervisor.HandleSet) error
	KillByNamePattern(pattern string) (int, error)
	JoinAll(handles *supervisor.HandleSet) error
}

var _ WorkerPool = (*supervisor.Supervisor)(nil)

// Plan is the outcome of the phases that only touch the file system.
type Plan struct {
	Topology    *topology.Topology
	ConfigFiles []string
	Scripts     []string
}

// Driver sequences one experiment run. It is not safe for concurrent use.
type Driver struct {
	cfg      config.OrchestratorConfig
	builder  *topology.Builder
	emitter  *emitter.Emitter
	scripts  *trafficgen.Writer
	pool     WorkerPool
	operator Operator

	inventory func() hardware.HostInventory
	phase     Phase
	logger    *logrus.Entry
}

func NewDriver(cfg config.OrchestratorConfig, pool WorkerPool, operator Operator) (*Driver, error) {
	space, err := topology.NewAddressSpace(cfg.AddressSpace)
	if err != nil {
		return nil, err
	}

	return &Driver{
		cfg:       cfg,
		builder:   topology.NewBuilder(space, cfg.Node),
		emitter:   emitter.NewEmitter(cfg.RunDirectory, cfg.ConfigFilePrefix, cfg.ConfigFileSuffix),
		scripts:   trafficgen.NewWriter(cfg.TrafficGenerator),
		pool:      pool,
		operator:  operator,
		inventory: hardware.GetHostInventory,
		phase:     PhaseValidate,
		logger:    logrus.NewEntry(logrus.StandardLogger()),
	}, nil
}

func (d *Driver) Phase() Phase {
	return d.phase
}

func (d *Driver) ManifestPath() string {
	return filepath.Join(d.cfg.RunDirectory, utils.ManifestFileName)
}

func (d *Driver) enter(phase Phase) {
	d.phase = phase
	d.logger.Debugf("Entering phase %s", phase)
}

// Generate writes the node configurations and the traffic generator scripts without starting anything.
func (d *Driver) Generate(numServers int) (*Plan, error) {
	d.logger = logrus.WithField("servers", numServers)

	plan, template, err := d.prepare(numServers)
	if err != nil {
		return nil, err
	}

	if plan.ConfigFiles, err = d.emit(template, plan.Topology); err != nil {
		return nil, err
	}

	d.enter(PhaseEmitScripts)
	if plan.Scripts, err = d.scripts.WriteAll(plan.Topology.Nodes, d.cfg.Experiment.Flows); err != nil {
		return nil, err
	}

	d.enter(PhaseDone)
	return plan, nil
}

// prepare covers Validate and Build. Nothing is written before both succeed.
func (d *Driver) prepare(numServers int) (*Plan, emitter.Document, error) {
	d.enter(PhaseValidate)

	if err := d.builder.ValidateServerCount(numServers); err != nil {
		return nil, nil, err
	}

	params := topology.ParametersFromConfig(numServers, d.cfg.Experiment)
	if err := params.Validate(); err != nil {
		return nil, nil, err
	}

	template, err := emitter.LoadTemplate(d.cfg.Experiment.Template)
	if err != nil {
		return nil, nil, err
	}

	d.enter(PhaseBuild)

	chain, err := d.builder.Build(params)
	if err != nil {
		return nil, nil, err
	}

	d.checkHost(chain)

	d.logger.Infof("Ready to generate %d configuration files for %d servers", numServers, numServers)

	return &Plan{Topology: chain}, template, nil
}

func (d *Driver) emit(template emitter.Document, chain *topology.Topology) ([]string, error) {
	d.enter(PhaseEmit)
	return d.emitter.Emit(template, chain.Nodes)
}

// checkHost only warns, the configurations may be meant for another machine.
func (d *Driver) checkHost(chain *topology.Topology) {
	inventory := d.inventory()
	d.logger.Infof("Host has %d logical CPUs (%d physical) and %d MiB of memory",
		inventory.LogicalCpus, inventory.PhysicalCpus, inventory.TotalMemory/(1<<20))

	for _, node := range chain.Nodes {
		mask, err := topology.ParseCpuMask(node.CpuMask)
		if err == nil {
			err = hardware.CheckCpuMask(mask, inventory.LogicalCpus)
		}

		if err != nil {
			d.logger.WithField("node", node.Index).Warnf("Node will not be able to pin its cores - %v", err)
		}
	}
}

func (d *Driver) workerSpecs(paths []string) []supervisor.ProcessSpec {
	specs := make([]supervisor.ProcessSpec, 0, len(paths))

	for i, path := range paths {
		args := []string{path}
		if d.cfg.Worker.ConfigFlag != "" {
			args = []string{d.cfg.Worker.ConfigFlag, path}
		}

		specs = append(specs, supervisor.ProcessSpec{
			Index:   i,
			Role:    supervisor.RoleWorker,
			Binary:  d.cfg.Worker.Binary,
			Args:    args,
			Elevate: d.cfg.Worker.Elevate,
			LogPath: filepath.Join(d.cfg.RunDirectory, d.cfg.ConfigFilePrefix+strconv.Itoa(i)+".log"),
		})
	}

	return specs
}

func (d *Driver) trafficSpecs(scripts []string) []supervisor.ProcessSpec {
	specs := make([]supervisor.ProcessSpec, 0, len(scripts))

	for i, script := range scripts {
		specs = append(specs, supervisor.ProcessSpec{
			Index:   i,
			Role:    supervisor.RoleTrafficGenerator,
			Binary:  "expect",
			Args:    []string{script},
			LogPath: filepath.Join(d.cfg.RunDirectory, d.cfg.TrafficGenerator.ScriptPrefix+strconv.Itoa(i)+".log"),
		})
	}

	return specs
}

func (d *Driver) writeManifest(runID string, sets ...*supervisor.HandleSet) {
	if err := supervisor.WriteManifest(d.ManifestPath(), supervisor.NewManifest(runID, sets...)); err != nil {
		d.logger.Warnf("Failed to write run manifest, a crashed run will have to be cleaned up by pattern - %v", err)
	}
}

func settle(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Run executes a whole experiment with numServers chain nodes. Workers are fully started before
// any traffic is sent and traffic is stopped before the workers are torn down. Once workers are
// running, every exit path (including cancellation of ctx) stops, sweeps and joins them.
func (d *Driver) Run(ctx context.Context, numServers int) error {
	runID := uuid.New().String()
	d.logger = logrus.WithFields(logrus.Fields{"run": runID, "servers": numServers})

	plan, template, err := d.prepare(numServers)
	if err != nil {
		return err
	}

	if plan.ConfigFiles, err = d.emit(template, plan.Topology); err != nil {
		return err
	}

	d.enter(PhaseStartWorkers)
	workers := d.pool.StartAll(ctx, d.workerSpecs(plan.ConfigFiles))
	d.writeManifest(runID, workers)

	var traffic *supervisor.HandleSet

	runErr := workers.LaunchError()
	if runErr != nil {
		d.logger.Errorf("Not every chain node could be started, tearing down the run")
	} else {
		traffic, runErr = d.experiment(ctx, runID, plan, workers)
	}

	if runErr != nil && ctx.Err() != nil {
		d.logger.Warnf("Run interrupted during phase %s, tearing down", d.phase)
	}

	result := multierr.Append(runErr, d.teardown(traffic, workers))
	if result == nil {
		if err := supervisor.RemoveManifest(d.ManifestPath()); err != nil {
			d.logger.Warnf("Failed to remove run manifest - %v", err)
		}
	}

	d.enter(PhaseDone)
	return result
}

// experiment runs the phases between starting the workers and stopping them. The returned set
// holds the traffic generators, if any were started.
func (d *Driver) experiment(ctx context.Context, runID string, plan *Plan, workers *supervisor.HandleSet) (*supervisor.HandleSet, error) {
	var err error

	d.enter(PhaseSettle)
	if err = settle(ctx, d.cfg.Experiment.SettleDelay); err != nil {
		return nil, err
	}

	d.enter(PhaseEmitScripts)
	if plan.Scripts, err = d.scripts.WriteAll(plan.Topology.Nodes, d.cfg.Experiment.Flows); err != nil {
		return nil, err
	}

	d.enter(PhaseCheckpointDownstream)
	if err = d.operator.Confirm(ctx, CheckpointDownstream); err != nil {
		return nil, err
	}

	var traffic *supervisor.HandleSet
	if d.cfg.TrafficGenerator.Launch {
		d.enter(PhaseLaunchTraffic)
		traffic = d.pool.StartAll(ctx, d.trafficSpecs(plan.Scripts))
		d.writeManifest(runID, workers, traffic)

		if err = traffic.LaunchError(); err != nil {
			return traffic, err
		}
	}

	d.enter(PhaseCheckpointTraffic)
	if err = d.operator.Confirm(ctx, CheckpointTraffic); err != nil {
		return traffic, err
	}

	d.enter(PhaseCheckpointRecord)
	if err = d.operator.Confirm(ctx, CheckpointRecord); err != nil {
		return traffic, err
	}

	return traffic, nil
}

// teardown stops the traffic generators before the workers and joins both sets.
func (d *Driver) teardown(traffic, workers *supervisor.HandleSet) error {
	var result error

	if traffic != nil {
		d.enter(PhaseStopTraffic)
		result = multierr.Append(result, d.stop(traffic, d.cfg.TrafficGenerator.KillPattern()))
	}

	d.enter(PhaseStopWorkers)
	result = multierr.Append(result, d.stop(workers, d.cfg.Worker.EffectiveKillPattern()))
	d.logger.Info("All chain nodes have been stopped")

	d.enter(PhaseJoin)
	if traffic != nil {
		result = multierr.Append(result, d.pool.JoinAll(traffic))
	}
	result = multierr.Append(result, d.pool.JoinAll(workers))

	d.logger.Info("All chain nodes have been joined")

	return result
}

// stop tolerates stop timeouts, those processes have been killed anyway.
func (d *Driver) stop(handles *supervisor.HandleSet, pattern string) error {
	var result error

	for _, err := range multierr.Errors(d.pool.StopAll(handles)) {
		var timeoutErr *supervisor.ProcessStopTimeoutError
		if errors.As(err, &timeoutErr) {
			d.logger.WithField("node", timeoutErr.Index).Warnf("%v", timeoutErr)
			continue
		}

		result = multierr.Append(result, err)
	}

	killed, err := d.pool.KillByNamePattern(pattern)
	if err != nil {
		d.logger.Warnf("Sweeping processes matching %q was incomplete - %v", pattern, err)
	}
	if killed > 0 {
		d.logger.Warnf("Killed %d leftover processes matching %q", killed, pattern)
	}

	return result
}
