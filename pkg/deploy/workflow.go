package deploy

import (
	"fmt"
	"strings"
	"time"

	"github.com/erpl-adt/erpl-adt/pkg/apperr"
	"github.com/erpl-adt/erpl-adt/pkg/session"
	"github.com/erpl-adt/erpl-adt/pkg/types"
)

// StepOutcome is the tri-state result of one workflow step.
type StepOutcome int

const (
	Completed StepOutcome = iota
	Skipped
	Failed
)

func (o StepOutcome) String() string {
	switch o {
	case Completed:
		return "completed"
	case Skipped:
		return "skipped"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// StepResult records the outcome of a single named step (discover, package,
// clone, pull, activate) within a repo's deploy run.
type StepResult struct {
	Name    string
	Outcome StepOutcome
	Message string
	Elapsed time.Duration
}

// RepoDeployResult records every step run for one repository and whether the
// repository deployed successfully overall.
type RepoDeployResult struct {
	RepoName string
	Steps    []StepResult
	Success  bool
	Message  string
	Elapsed  time.Duration
}

// DeployResult is the full outcome of one Execute() invocation.
type DeployResult struct {
	Discovery     StepResult
	RepoResults   []RepoDeployResult
	Success       bool
	Summary       string
	TotalDuration time.Duration
}

// Subcommand selects which deploy-orchestrator operation Execute runs.
type Subcommand int

const (
	SubcommandDeploy Subcommand = iota
	SubcommandStatus
	SubcommandPull
	SubcommandActivate
	SubcommandDiscover
)

// Workflow drives the stepped per-repo deploy sequence (package, clone,
// pull, activate) against an already-authenticated session, for every repo
// in config, in its already-dependency-sorted order.
type Workflow struct {
	session session.Session
	config  AppConfig
}

// NewWorkflow builds a deploy Workflow bound to s and config. config.Repos
// is expected to already be topologically sorted (see SortReposByDependency).
func NewWorkflow(s session.Session, config AppConfig) *Workflow {
	return &Workflow{session: s, config: config}
}

// Execute dispatches to the requested subcommand.
func (w *Workflow) Execute(cmd Subcommand) (DeployResult, *apperr.Error) {
	switch cmd {
	case SubcommandDeploy:
		return w.ExecuteDeploy(), nil
	case SubcommandStatus:
		return w.ExecuteStatus(), nil
	case SubcommandPull:
		return w.ExecutePull(), nil
	case SubcommandActivate:
		return w.ExecuteActivate(), nil
	case SubcommandDiscover:
		return w.ExecuteDiscover(), nil
	default:
		return DeployResult{}, apperr.New("Workflow", apperr.KindInternal, "unknown subcommand")
	}
}

// ExecuteStatus lists the linked repositories, reporting each as one repo
// result without mutating anything.
func (w *Workflow) ExecuteStatus() DeployResult {
	start := time.Now()
	var result DeployResult

	repos, err := ListRepos(w.session)
	if err != nil {
		result.Success = false
		result.Summary = "Status failed: " + err.ToString()
		result.TotalDuration = time.Since(start)
		return result
	}

	for _, repo := range repos {
		result.RepoResults = append(result.RepoResults, RepoDeployResult{
			RepoName: repo.Key,
			Success:  true,
			Message:  fmt.Sprintf("%s (%s, branch %s, status %s)", repo.Url, repo.Package, repo.Branch, repo.Status),
		})
	}

	result.Success = true
	result.Summary = fmt.Sprintf("%d repositories linked", len(repos))
	result.TotalDuration = time.Since(start)
	return result
}

// ExecutePull pulls every configured repo that is already linked; repos
// not yet linked fail their result instead of being cloned.
func (w *Workflow) ExecutePull() DeployResult {
	start := time.Now()
	var result DeployResult

	anyFailed := false
	for _, repo := range w.config.Repos {
		repoStart := time.Now()
		repoResult := RepoDeployResult{RepoName: repo.Name}

		existing, err := FindRepo(w.session, repo.Url)
		switch {
		case err != nil:
			repoResult.Message = "Lookup failed: " + err.ToString()
		case existing == nil:
			repoResult.Message = "not linked; run deploy first"
		default:
			pullStep := w.RunPullStep(existing.Key)
			repoResult.Steps = append(repoResult.Steps, pullStep)
			repoResult.Success = pullStep.Outcome != Failed
			repoResult.Message = pullStep.Message
		}
		if !repoResult.Success {
			anyFailed = true
		}
		repoResult.Elapsed = time.Since(repoStart)
		result.RepoResults = append(result.RepoResults, repoResult)
	}

	succeeded := 0
	for _, r := range result.RepoResults {
		if r.Success {
			succeeded++
		}
	}
	result.Success = !anyFailed
	result.Summary = fmt.Sprintf("%d succeeded, %d failed", succeeded, len(result.RepoResults)-succeeded)
	result.TotalDuration = time.Since(start)
	return result
}

// ExecuteActivate runs the activation step alone.
func (w *Workflow) ExecuteActivate() DeployResult {
	start := time.Now()
	var result DeployResult

	step := w.RunActivateStep()
	result.RepoResults = append(result.RepoResults, RepoDeployResult{
		RepoName: "activation",
		Steps:    []StepResult{step},
		Success:  step.Outcome != Failed,
		Message:  step.Message,
		Elapsed:  step.Elapsed,
	})

	result.Success = step.Outcome != Failed
	if result.Success {
		result.Summary = "Activation: " + step.Message
	} else {
		result.Summary = "Activation failed: " + step.Message
	}
	result.TotalDuration = time.Since(start)
	return result
}

// ExecuteDiscover runs discovery alone, without deploying any repo.
func (w *Workflow) ExecuteDiscover() DeployResult {
	start := time.Now()
	step := w.RunDiscovery()

	result := DeployResult{Discovery: step}
	result.TotalDuration = time.Since(start)

	if step.Outcome == Failed {
		result.Success = false
		result.Summary = "Discovery failed: " + step.Message
		return result
	}

	result.Success = true
	result.Summary = "Discovery succeeded"
	return result
}

// ExecuteDeploy runs discovery, then deploys every configured repo in order,
// continuing past a failed repo to report every repo's outcome independently.
func (w *Workflow) ExecuteDeploy() DeployResult {
	totalStart := time.Now()
	var result DeployResult

	result.Discovery = w.RunDiscovery()
	if result.Discovery.Outcome == Failed {
		result.Success = false
		result.Summary = "Discovery failed: " + result.Discovery.Message
		result.TotalDuration = time.Since(totalStart)
		return result
	}

	anyFailed := false
	for _, repo := range w.config.Repos {
		repoResult := w.DeployRepo(repo)
		if !repoResult.Success {
			anyFailed = true
		}
		result.RepoResults = append(result.RepoResults, repoResult)
	}

	succeeded, failed := 0, 0
	for _, r := range result.RepoResults {
		if r.Success {
			succeeded++
		} else {
			failed++
		}
	}

	result.Success = !anyFailed
	result.TotalDuration = time.Since(totalStart)
	result.Summary = fmt.Sprintf("%d succeeded, %d failed", succeeded, failed)
	return result
}

// RunDiscovery confirms the backend exposes abapGit support.
func (w *Workflow) RunDiscovery() StepResult {
	start := time.Now()
	disc, err := Discover(w.session)
	if err != nil {
		return StepResult{"discover", Failed, err.ToString(), time.Since(start)}
	}

	if !HasAbapGitSupport(disc) {
		return StepResult{"discover", Failed, "abapGit backend not available on this system", time.Since(start)}
	}

	return StepResult{"discover", Completed, "abapGit support detected", time.Since(start)}
}

// DeployRepo runs the package/clone/pull/activate sequence for one repo,
// stopping at the first failed step.
func (w *Workflow) DeployRepo(repo RepoConfig) RepoDeployResult {
	repoStart := time.Now()
	result := RepoDeployResult{RepoName: repo.Name}

	pkgStep := w.RunPackageStep(repo)
	result.Steps = append(result.Steps, pkgStep)
	if pkgStep.Outcome == Failed {
		result.Success = false
		result.Message = "Package step failed: " + pkgStep.Message
		result.Elapsed = time.Since(repoStart)
		return result
	}

	cloneStep := w.RunCloneStep(repo)
	result.Steps = append(result.Steps, cloneStep)
	if cloneStep.Outcome == Failed {
		result.Success = false
		result.Message = "Clone step failed: " + cloneStep.Message
		result.Elapsed = time.Since(repoStart)
		return result
	}

	// Extract repo_key from the clone step message (stored as "key:VALUE"),
	// whether the step completed (freshly cloned) or was skipped (already
	// linked) — both messages carry the same marker.
	var repoKey string
	if pos := strings.Index(cloneStep.Message, "key:"); pos != -1 {
		repoKey = cloneStep.Message[pos+4:]
	}

	if repoKey != "" {
		pullStep := w.RunPullStep(repoKey)
		result.Steps = append(result.Steps, pullStep)
		if pullStep.Outcome == Failed {
			result.Success = false
			result.Message = "Pull step failed: " + pullStep.Message
			result.Elapsed = time.Since(repoStart)
			return result
		}
	}

	if repo.Activate {
		actStep := w.RunActivateStep()
		result.Steps = append(result.Steps, actStep)
		if actStep.Outcome == Failed {
			result.Success = false
			result.Message = "Activation step failed: " + actStep.Message
			result.Elapsed = time.Since(repoStart)
			return result
		}
	} else {
		result.Steps = append(result.Steps, StepResult{"activate", Skipped, "activation disabled for this repo", 0})
	}

	result.Success = true
	result.Message = "deployed successfully"
	result.Elapsed = time.Since(repoStart)
	return result
}

// RunPackageStep ensures repo.Package exists, describing it with the repo's
// name and a fixed "LOCAL" software component.
func (w *Workflow) RunPackageStep(repo RepoConfig) StepResult {
	start := time.Now()

	_, err := EnsurePackage(w.session, repo.Package, repo.Name, "LOCAL")
	if err != nil {
		return StepResult{"package", Failed, err.ToString(), time.Since(start)}
	}

	return StepResult{"package", Completed, "package ensured: " + repo.Package.String(), time.Since(start)}
}

var defaultBranch = types.MustBranchRef("refs/heads/main")

// RunCloneStep links repo.Url if it isn't already linked, or reports the
// existing link's repo key.
func (w *Workflow) RunCloneStep(repo RepoConfig) StepResult {
	start := time.Now()
	timeout := time.Duration(w.config.TimeoutSeconds) * time.Second

	existing, err := FindRepo(w.session, repo.Url)
	if err != nil {
		return StepResult{"clone", Failed, err.ToString(), time.Since(start)}
	}

	if existing != nil {
		return StepResult{"clone", Skipped, "already linked, key:" + existing.Key, time.Since(start)}
	}

	branch := defaultBranch
	if repo.Branch != nil {
		branch = *repo.Branch
	}

	cloned, err := CloneRepo(w.session, repo.Url, branch, repo.Package, timeout)
	if err != nil {
		return StepResult{"clone", Failed, err.ToString(), time.Since(start)}
	}

	return StepResult{"clone", Completed, "cloned, key:" + cloned.Key, time.Since(start)}
}

// RunPullStep pulls the latest commit for the repo identified by repoKey.
func (w *Workflow) RunPullStep(repoKey string) StepResult {
	start := time.Now()
	timeout := time.Duration(w.config.TimeoutSeconds) * time.Second

	key, verr := types.NewRepoKey(repoKey)
	if verr != nil {
		return StepResult{"pull", Failed, "invalid repo key: " + verr.Error(), time.Since(start)}
	}

	if err := PullRepo(w.session, key, timeout); err != nil {
		return StepResult{"pull", Failed, err.ToString(), time.Since(start)}
	}

	return StepResult{"pull", Completed, "pull completed", time.Since(start)}
}

// RunActivateStep activates every pending object, skipping when none are
// pending.
func (w *Workflow) RunActivateStep() StepResult {
	start := time.Now()
	timeout := time.Duration(w.config.TimeoutSeconds) * time.Second

	inactive, err := GetInactiveObjects(w.session)
	if err != nil {
		return StepResult{"activate", Failed, err.ToString(), time.Since(start)}
	}

	if len(inactive) == 0 {
		return StepResult{"activate", Skipped, "no inactive objects", time.Since(start)}
	}

	act, err := ActivateAll(w.session, inactive, timeout)
	if err != nil {
		return StepResult{"activate", Failed, err.ToString(), time.Since(start)}
	}

	message := fmt.Sprintf("activated %d/%d", act.Activated, act.Total)
	if act.Failed > 0 {
		message += fmt.Sprintf(" (%d failed)", act.Failed)
	}

	outcome := Completed
	if act.Failed > 0 {
		outcome = Failed
	}
	return StepResult{"activate", outcome, message, time.Since(start)}
}
