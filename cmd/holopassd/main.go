// main.go - End-to-end holographic tracking scenario.
//
// This demonstrates the complete lifecycle of a tracked session:
//   - Trusted setup generates a fresh RSA modulus and wipes its factors
//   - N agents each apply a rollback-protected state transition; full
//     segments fold into chained snapshots recorded in an append-only log
//   - A stale writer is rejected by the compare-and-swap gate
//   - A swarm runs sub-tasks locally and merges a sealed work proof back
//     into the global fingerprint
//   - An inspector replays the claimed agent path against the fingerprint
//   - The final result is exported in a tamper-evident envelope and the
//     last snapshot link is attested with a Groth16 proof
//
// Usage:
//
//	go run ./cmd/holopassd
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"holopass/internal/attest"
	"holopass/internal/chain"
	"holopass/internal/holo"
	"holopass/internal/registry"
	"holopass/internal/scope"
	"holopass/internal/seal"
	"holopass/internal/trace"
)

const version = "1.0.0"

func main() {
	config, err := LoadConfig("holopass.json")
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}
	if err := config.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	auditPath := ""
	if config.EnableAudit {
		auditPath = config.AuditLogPath
	}
	logger, err := NewLogger(config.LogLevel, config.LogFile, auditPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger setup failed: %v\n", err)
		os.Exit(1)
	}
	defer logger.Close()

	metrics := NewMetricsCollector()
	health := NewHealthChecker(version)
	defer holo.PurgeSecureMemory()

	if err := run(config, logger, metrics, health); err != nil {
		logger.Fatal("scenario failed: %v", err)
	}
}

func run(config *Config, logger *Logger, metrics *MetricsCollector, health *HealthChecker) error {
	logger.Info("=== Holographic Tracking: %d-agent scenario ===", config.NumAgents)

	// 1. Trusted setup: generate the group modulus and discard its factors.
	logger.Info("Generating %d-bit modulus...", config.ModulusBits)
	setupStart := time.Now()
	modulus, err := holo.GenerateSafeModulus(config.ModulusBits)
	if err != nil {
		return fmt.Errorf("trusted setup failed: %w", err)
	}
	logger.Info("Modulus ready in %v", time.Since(setupStart))

	reg := registry.NewWithBound(config.Domain, config.PrimeSearchBound)
	acc, err := holo.NewFromConfig(holo.Config{
		Modulus:          modulus,
		Generator:        config.Generator,
		MaxDepth:         config.MaxDepth,
		Domain:           config.Domain,
		PrimeSearchBound: config.PrimeSearchBound,
		MaxOpLimit:       config.MaxOpLimit,
		Jitter:           holo.JitterConfig{MinLoops: int(config.JitterMinLoops), MaxLoops: int(config.JitterMaxLoops)},
	})
	if err != nil {
		return fmt.Errorf("accumulator setup failed: %w", err)
	}

	// Load or create the snapshot log
	var snapshots *chain.Log
	if l, err := chain.LoadFromFile(config.SnapshotLogPath); err == nil {
		snapshots = l
		logger.Info("Loaded snapshot log with %d segments", len(l.Records))
	} else {
		snapshots = chain.NewLog()
	}

	health.RegisterComponent("accumulator", func() error {
		if acc.OpCount() > config.MaxOpLimit {
			return fmt.Errorf("op limit exceeded: %d", acc.OpCount())
		}
		return nil
	})
	health.RegisterComponent("snapshot_chain", snapshots.Verify)

	// 2. Attestation keys
	if err := os.MkdirAll(config.KeyDir, 0755); err != nil {
		return fmt.Errorf("key dir creation failed: %w", err)
	}
	pkPath := filepath.Join(config.KeyDir, "chainlink_pk.bin")
	vkPath := filepath.Join(config.KeyDir, "chainlink_vk.bin")
	logger.Info("Setting up attestation keys...")
	attestor, err := attest.NewAttestor(pkPath, vkPath)
	if err != nil {
		return fmt.Errorf("attestor setup failed: %w", err)
	}
	health.RegisterComponent("attestation_keys", func() error {
		if _, err := os.Stat(pkPath); err != nil {
			return err
		}
		_, err := os.Stat(vkPath)
		return err
	})

	// 3. Agent update loop with per-agent rate limiting and snapshot folding
	limiter := NewAgentRateLimiter(config.RateLimitTokens, config.RateLimitRefill,
		time.Duration(config.RateLimitPeriodMs)*time.Millisecond)
	task := trace.NewTaskState("session-1", "distributed analysis run")

	prevT := acc.StateDecimal()
	segment := uint64(len(snapshots.Records))
	var lastSnapshot *holo.SnapshotRecord

	for i := 0; i < config.NumAgents; i++ {
		agentID := fmt.Sprintf("agent_%02d", i+1)
		if !limiter.Allow(agentID) {
			logger.Warn("Agent %s rate limited, skipping", agentID)
			metrics.IncrementCounter(MetricRateLimitedCount)
			continue
		}

		updateStart := time.Now()
		newT, folded, payload, err := acc.UpdateWithSnapshot(agentID, segment, snapshots.Head(), prevT)
		if err != nil {
			metrics.RecordError("update")
			return fmt.Errorf("update for %s failed: %w", agentID, err)
		}
		metrics.RecordUpdate(time.Since(updateStart))
		task.Record(agentID, newT, acc.Depth())

		if folded {
			rec, err := snapshots.AppendJSON(payload)
			if err != nil {
				return fmt.Errorf("snapshot append failed: %w", err)
			}
			lastSnapshot = &rec
			segment++
			metrics.RecordSnapshot()
			logger.Info("Segment %d folded: %s", rec.SegmentID, rec.SnapshotHash[:16])
		}
		prevT = newT
	}
	metrics.SetGauge(MetricOpCount, float64(acc.OpCount()))
	metrics.SetGauge(MetricSegmentDepth, float64(acc.Depth()))
	logger.Info("All agents applied; depth=%d ops=%d", acc.Depth(), acc.OpCount())

	// 4. A stale writer must be rejected without touching the state
	before := acc.State()
	if _, err := acc.UpdateState("late_agent", "2"); errors.Is(err, holo.ErrStateMismatch) {
		metrics.RecordStateMismatch()
		logger.Audit("state_mismatch", map[string]interface{}{"agent": "late_agent"})
		logger.Info("Stale update rejected as expected")
	} else {
		return fmt.Errorf("stale update was not rejected (err=%v)", err)
	}
	if acc.State() != before {
		return fmt.Errorf("state changed on a rejected update")
	}

	// 5. Order-sensitive merge preview over two branch primes
	pa, err := reg.Register("branch_a")
	if err != nil {
		return err
	}
	pb, err := reg.Register("branch_b")
	if err != nil {
		return err
	}
	mergedAB, _, ops, err := acc.SafeMergeBranches(acc.StateDecimal(), []string{pa, pb}, acc.Depth())
	if err != nil {
		return fmt.Errorf("merge failed: %w", err)
	}
	mergedBA, _, _, err := acc.SafeMergeBranches(acc.StateDecimal(), []string{pb, pa}, acc.Depth())
	if err != nil {
		return fmt.Errorf("merge failed: %w", err)
	}
	metrics.IncrementCounter(MetricMergeCount)
	logger.Info("Merge preview consumed %d ops; order-sensitive: %v", ops, mergedAB != mergedBA)

	// 6. Swarm phase: local sub-tasks sealed into one global step
	swarm, err := scope.NewSwarmScope("research_swarm", acc.Modulus(), acc.Generator(), reg)
	if err != nil {
		return fmt.Errorf("swarm setup failed: %w", err)
	}
	for _, sub := range []string{"crawler_1", "crawler_2", "ranker"} {
		if err := swarm.TrackSubTask(sub); err != nil {
			return fmt.Errorf("sub-task %s failed: %w", sub, err)
		}
	}
	workProof := swarm.SealAndExport()
	mergedT, mergedDepth, err := scope.MergeGlobal(task.Meta.TraceT, task.Meta.Depth, acc.Modulus(), acc.Generator(), workProof)
	if err != nil {
		return fmt.Errorf("swarm merge failed: %w", err)
	}
	logger.Info("Swarm of complexity %d merged at depth %d", workProof.Complexity, mergedDepth)

	// 7. Authority audit: a review session whose path log must replay to its
	// fingerprint before any privileged role is honored.
	if err := runAuthorityAudit(config, logger, reg, acc.Modulus()); err != nil {
		return fmt.Errorf("authority audit failed: %w", err)
	}

	// 8. Seal and verify the exported result
	task.Meta.TraceT = mergedT
	task.Meta.Depth = mergedDepth
	envelope, err := seal.Seal(task.Meta.TraceT, task.Payload, map[string]string{
		"agents":    fmt.Sprintf("%d", len(task.Meta.PathLog)),
		"snapshots": fmt.Sprintf("%d", len(snapshots.Records)),
	})
	if err != nil {
		return fmt.Errorf("seal failed: %w", err)
	}
	if ok, err := seal.Verify(envelope); err != nil || !ok {
		return fmt.Errorf("envelope verification failed (ok=%v err=%v)", ok, err)
	}
	logger.Info("Result sealed: %s", envelope.Header.IntegritySeal[:16])

	// 9. Attest the most recent snapshot link
	if lastSnapshot != nil {
		attestStart := time.Now()
		attestation, proof, err := attestor.Attest(*lastSnapshot)
		if err != nil {
			return fmt.Errorf("attestation failed: %w", err)
		}
		metrics.RecordHistogram(MetricAttestTime, time.Since(attestStart).Seconds())
		if err := attestor.VerifyAttestation(attestation, proof); err != nil {
			return fmt.Errorf("attestation verification failed: %w", err)
		}
		logger.Info("Snapshot %d attested (%d byte proof)", lastSnapshot.SegmentID, len(proof))
	}

	// 10. Persist the chain and report
	if err := snapshots.SaveToFile(config.SnapshotLogPath); err != nil {
		return fmt.Errorf("snapshot log save failed: %w", err)
	}
	systemHealth := health.CheckHealth()
	logger.Info("Health: %s (%d components)", systemHealth.OverallStatus, len(systemHealth.Components))
	logger.Info("Metrics: %+v", metrics.GetMetricsSummary())
	logger.Info("Final fingerprint: %s...", acc.State()[:16])
	return nil
}

// runAuthorityAudit walks a short review session through a topology guard,
// then asks the gate for a privileged decision backed by path replay.
func runAuthorityAudit(config *Config, logger *Logger, reg *registry.Registry, modulus string) error {
	session, err := holo.NewFromConfig(holo.Config{
		Modulus:          modulus,
		Generator:        config.Generator,
		MaxDepth:         100,
		Domain:           config.Domain,
		PrimeSearchBound: config.PrimeSearchBound,
		Jitter:           holo.JitterConfig{MinLoops: int(config.JitterMinLoops), MaxLoops: int(config.JitterMaxLoops)},
	})
	if err != nil {
		return err
	}

	guard := trace.NewTopologyGuard(map[string][]string{
		trace.StartNode:    {"planner"},
		"planner":          {"security_auditor"},
		"security_auditor": {"executor"},
	})

	review := trace.NewTaskState("review-1", nil)
	for _, agent := range []string{"planner", "security_auditor", "executor"} {
		if !guard.CheckAccess(agent, review) {
			return fmt.Errorf("topology rejected %s", agent)
		}
		newT, err := session.UpdateState(agent, session.StateDecimal())
		if err != nil {
			return err
		}
		review.Record(agent, newT, session.Depth())
	}

	inspector, err := trace.NewInspector(modulus, config.Generator, reg)
	if err != nil {
		return err
	}
	gate := trace.NewGate(inspector)
	granted, err := gate.RequireAuthority(review, "security_auditor")
	if err != nil {
		return err
	}
	if !granted {
		return fmt.Errorf("audited path did not grant authority")
	}
	logger.Info("Authority granted for %s", review.Summary())
	return nil
}
