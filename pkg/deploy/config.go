package deploy

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/erpl-adt/erpl-adt/pkg/apperr"
	"github.com/erpl-adt/erpl-adt/pkg/types"
)

var configValidator = validator.New()

// ConnectionConfig is the SAP system connection half of AppConfig.
type ConnectionConfig struct {
	Host        string         `yaml:"host"`
	Port        uint16         `yaml:"port"`
	UseHttps    bool           `yaml:"https"`
	Client      types.SapClient `yaml:"-"`
	User        string         `yaml:"user"`
	Password    string         `yaml:"password"`
	PasswordEnv string         `yaml:"password_env"`
}

// RepoConfig is one abapGit repository entry in the deploy configuration.
type RepoConfig struct {
	Name       string
	Url        types.RepoUrl
	Branch     *types.BranchRef
	Package    types.PackageName
	Activate   bool
	DependsOn  []string
}

// AppConfig is the fully merged, not-yet-validated configuration driving one
// deploy invocation.
type AppConfig struct {
	Connection     ConnectionConfig
	Repos          []RepoConfig
	LogFile        string
	JsonOutput     bool
	Verbose        bool
	Quiet          bool
	TimeoutSeconds int
}

func configErr(message string) *apperr.Error {
	return apperr.New("ConfigLoader", apperr.KindInternal, message)
}

// yamlConnection/yamlRepo/yamlRoot mirror the on-disk YAML shape exactly, so
// unmarshalling doesn't need to special-case optional fields' zero values
// against a type that also carries validated wrapper types.
type yamlConnection struct {
	Host        string `yaml:"host"`
	Port        uint16 `yaml:"port"`
	Https       bool   `yaml:"https"`
	Client      string `yaml:"client"`
	User        string `yaml:"user"`
	Password    string `yaml:"password"`
	PasswordEnv string `yaml:"password_env"`
}

type yamlRepo struct {
	Name      string   `yaml:"name"`
	Url       string   `yaml:"url"`
	Package   string   `yaml:"package"`
	Branch    string   `yaml:"branch"`
	Activate  *bool    `yaml:"activate"`
	DependsOn []string `yaml:"depends_on"`
}

type yamlRoot struct {
	Connection yamlConnection `yaml:"connection"`
	Repos      []yamlRepo     `yaml:"repos"`
	LogFile    string         `yaml:"log_file"`
	JsonOutput bool           `yaml:"json_output"`
	Verbose    bool           `yaml:"verbose"`
	Quiet      bool           `yaml:"quiet"`
	Timeout    int            `yaml:"timeout"`
}

func parseYamlRepo(r yamlRepo) (RepoConfig, *apperr.Error) {
	if r.Name == "" {
		return RepoConfig{}, configErr("repo entry missing 'name' field")
	}
	if r.Url == "" {
		return RepoConfig{}, configErr("repo entry missing 'url' field")
	}
	if r.Package == "" {
		return RepoConfig{}, configErr("repo entry missing 'package' field")
	}

	url, verr := types.NewRepoUrl(r.Url)
	if verr != nil {
		return RepoConfig{}, configErr("invalid repo URL: " + verr.Error())
	}
	pkg, verr := types.NewPackageName(r.Package)
	if verr != nil {
		return RepoConfig{}, configErr("invalid package name: " + verr.Error())
	}

	var branch *types.BranchRef
	if r.Branch != "" {
		b, verr := types.NewBranchRef(r.Branch)
		if verr != nil {
			return RepoConfig{}, configErr("invalid branch ref: " + verr.Error())
		}
		branch = &b
	}

	activate := true
	if r.Activate != nil {
		activate = *r.Activate
	}

	return RepoConfig{
		Name:      r.Name,
		Url:       url,
		Branch:    branch,
		Package:   pkg,
		Activate:  activate,
		DependsOn: r.DependsOn,
	}, nil
}

// LoadFromYaml parses a deploy configuration file.
func LoadFromYaml(path string) (AppConfig, *apperr.Error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return AppConfig{}, configErr("failed to read config file: " + err.Error())
	}

	var root yamlRoot
	if err := yaml.Unmarshal(data, &root); err != nil {
		return AppConfig{}, configErr("failed to parse YAML file: " + err.Error())
	}

	config := AppConfig{
		Connection: ConnectionConfig{
			Host:        root.Connection.Host,
			Port:        root.Connection.Port,
			UseHttps:    root.Connection.Https,
			User:        root.Connection.User,
			Password:    root.Connection.Password,
			PasswordEnv: root.Connection.PasswordEnv,
		},
		LogFile:        root.LogFile,
		JsonOutput:     root.JsonOutput,
		Verbose:        root.Verbose,
		Quiet:          root.Quiet,
		TimeoutSeconds: root.Timeout,
	}

	if root.Connection.Client != "" {
		client, verr := types.NewSapClient(root.Connection.Client)
		if verr != nil {
			return AppConfig{}, configErr("invalid SAP client: " + verr.Error())
		}
		config.Connection.Client = client
	}

	for _, r := range root.Repos {
		repo, cerr := parseYamlRepo(r)
		if cerr != nil {
			return AppConfig{}, cerr
		}
		config.Repos = append(config.Repos, repo)
	}

	return config, nil
}

// RegisterCliFlags adds the deploy configuration's CLI flags to fs, with
// defaults matching AppConfig's zero-merge behavior in MergeConfigs.
func RegisterCliFlags(fs *pflag.FlagSet) {
	fs.String("host", "", "SAP system hostname")
	fs.Int("port", 50000, "SAP system port")
	fs.Bool("https", false, "Use HTTPS")
	fs.String("client", "", "SAP client (3 digits)")
	fs.String("user", "", "SAP username")
	fs.String("password", "", "SAP password")
	fs.String("password-env", "", "Environment variable containing SAP password")

	fs.String("repo", "", "Git repository URL")
	fs.String("branch", "", "Git branch")
	fs.String("package", "", "ABAP package name")

	fs.StringP("config", "c", "", "Path to YAML config file")
	fs.Bool("no-activate", false, "Skip activation step")
	fs.Int("timeout", 600, "Timeout in seconds")
	fs.Bool("json", false, "JSON output")
	fs.String("log-file", "", "Log file path")
	fs.BoolP("verbose", "v", false, "Verbose output")
	fs.BoolP("quiet", "q", false, "Quiet output")
}

// LoadFromCli builds an AppConfig from a parsed flag set registered via
// RegisterCliFlags. Only flags the user actually set (fs.Changed) produce
// overrides; the rest are left at AppConfig's zero value for MergeConfigs to
// leave alone.
func LoadFromCli(fs *pflag.FlagSet) (AppConfig, *apperr.Error) {
	var config AppConfig

	if fs.Changed("host") {
		config.Connection.Host, _ = fs.GetString("host")
	}
	if fs.Changed("port") {
		port, _ := fs.GetInt("port")
		config.Connection.Port = uint16(port)
	}
	if v, _ := fs.GetBool("https"); v {
		config.Connection.UseHttps = true
	}
	if fs.Changed("client") {
		val, _ := fs.GetString("client")
		client, verr := types.NewSapClient(val)
		if verr != nil {
			return AppConfig{}, configErr("invalid --client: " + verr.Error())
		}
		config.Connection.Client = client
	}
	if fs.Changed("user") {
		config.Connection.User, _ = fs.GetString("user")
	}
	if fs.Changed("password") {
		config.Connection.Password, _ = fs.GetString("password")
	}
	if fs.Changed("password-env") {
		config.Connection.PasswordEnv, _ = fs.GetString("password-env")
	}

	if fs.Changed("repo") {
		repoUrlStr, _ := fs.GetString("repo")
		url, verr := types.NewRepoUrl(repoUrlStr)
		if verr != nil {
			return AppConfig{}, configErr("invalid --repo URL: " + verr.Error())
		}

		var branch *types.BranchRef
		if fs.Changed("branch") {
			branchStr, _ := fs.GetString("branch")
			b, verr := types.NewBranchRef(branchStr)
			if verr != nil {
				return AppConfig{}, configErr("invalid --branch: " + verr.Error())
			}
			branch = &b
		}

		pkg := types.MustPackageName("$TMP")
		if fs.Changed("package") {
			pkgStr, _ := fs.GetString("package")
			p, verr := types.NewPackageName(pkgStr)
			if verr != nil {
				return AppConfig{}, configErr("invalid --package: " + verr.Error())
			}
			pkg = p
		}

		noActivate, _ := fs.GetBool("no-activate")

		config.Repos = append(config.Repos, RepoConfig{
			Name:     "cli-repo",
			Url:      url,
			Branch:   branch,
			Package:  pkg,
			Activate: !noActivate,
		})
	}

	if fs.Changed("timeout") {
		config.TimeoutSeconds, _ = fs.GetInt("timeout")
	}
	if v, _ := fs.GetBool("json"); v {
		config.JsonOutput = true
	}
	if fs.Changed("log-file") {
		config.LogFile, _ = fs.GetString("log-file")
	}
	if v, _ := fs.GetBool("verbose"); v {
		config.Verbose = true
	}
	if v, _ := fs.GetBool("quiet"); v {
		config.Quiet = true
	}

	return config, nil
}

// MergeConfigs overlays cli's explicitly-set fields onto yamlBase. Connection
// scalars use their zero value as "not set"; repos are wholesale-replaced
// when the CLI supplies any (single-repo mode never mixes with YAML repos).
func MergeConfigs(yamlBase, cli AppConfig) AppConfig {
	merged := yamlBase

	if cli.Connection.Host != "" {
		merged.Connection.Host = cli.Connection.Host
	}
	if cli.Connection.Port != 0 {
		merged.Connection.Port = cli.Connection.Port
	}
	if cli.Connection.UseHttps {
		merged.Connection.UseHttps = true
	}
	if cli.Connection.User != "" {
		merged.Connection.User = cli.Connection.User
	}
	if cli.Connection.Password != "" {
		merged.Connection.Password = cli.Connection.Password
	}
	if cli.Connection.PasswordEnv != "" {
		merged.Connection.PasswordEnv = cli.Connection.PasswordEnv
	}
	if !cli.Connection.Client.IsZero() {
		merged.Connection.Client = cli.Connection.Client
	}

	if len(cli.Repos) > 0 {
		merged.Repos = cli.Repos
	}

	if cli.JsonOutput {
		merged.JsonOutput = true
	}
	if cli.Verbose {
		merged.Verbose = true
	}
	if cli.Quiet {
		merged.Quiet = true
	}
	if cli.TimeoutSeconds != 0 {
		merged.TimeoutSeconds = cli.TimeoutSeconds
	}
	if cli.LogFile != "" {
		merged.LogFile = cli.LogFile
	}

	return merged
}

// ResolvePasswordEnv fills in Connection.Password from the named environment
// variable when the password itself is empty and password_env was given.
func ResolvePasswordEnv(config AppConfig) (AppConfig, *apperr.Error) {
	if config.Connection.Password == "" && config.Connection.PasswordEnv != "" {
		val, ok := os.LookupEnv(config.Connection.PasswordEnv)
		if !ok {
			return AppConfig{}, configErr(fmt.Sprintf("environment variable '%s' not set (specified by password_env)", config.Connection.PasswordEnv))
		}
		config.Connection.Password = val
	}
	return config, nil
}

// configValidation is the struct-tag validation view of AppConfig. Go's
// custom value types (SapClient, RepoUrl, ...) don't carry useful
// `validate` tags themselves, so the fields the library needs to see are
// projected into plain scalars here before calling Struct, the same
// request/validator split used across the codebase for input checking.
type configValidation struct {
	Host        string `validate:"required"`
	Port        uint16 `validate:"required"`
	Client      string `validate:"required"`
	User        string `validate:"required"`
	Password    string `validate:"required_without=PasswordEnv"`
	PasswordEnv string `validate:"required_without=Password"`
	RepoCount   int    `validate:"required,gt=0"`
	Timeout     int    `validate:"required,gt=0"`
	Verbose     bool   `validate:"excluded_with=Quiet"`
	Quiet       bool
}

// ValidateConfig checks the fully merged/resolved configuration for
// completeness before the deploy workflow runs.
func ValidateConfig(config AppConfig) *apperr.Error {
	view := configValidation{
		Host:        config.Connection.Host,
		Port:        config.Connection.Port,
		Client:      config.Connection.Client.String(),
		User:        config.Connection.User,
		Password:    config.Connection.Password,
		PasswordEnv: config.Connection.PasswordEnv,
		RepoCount:   len(config.Repos),
		Timeout:     config.TimeoutSeconds,
		Verbose:     config.Verbose,
		Quiet:       config.Quiet,
	}

	if err := configValidator.Struct(view); err != nil {
		return configErr(describeValidationError(err, config.TimeoutSeconds))
	}
	return nil
}

func describeValidationError(err error, timeoutSeconds int) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return err.Error()
	}
	first := verrs[0]
	switch first.Field() {
	case "Host":
		return "missing required field: host"
	case "Port":
		return "invalid port: 0"
	case "Client":
		return "missing required field: client"
	case "User":
		return "missing required field: user"
	case "Password", "PasswordEnv":
		return "missing required field: password or password_env"
	case "RepoCount":
		return "at least one repository must be configured"
	case "Timeout":
		return fmt.Sprintf("timeout must be positive, got %d", timeoutSeconds)
	case "Verbose":
		return "cannot use both --verbose and --quiet"
	default:
		return err.Error()
	}
}

// SortReposByDependency topologically sorts repos by depends_on using
// Kahn's algorithm, so the deploy orchestrator never deploys a repo before
// the repos it depends on. Ready repos are taken first-in, first-out: those
// with no dependencies are queued in input order, and a repo freed later is
// queued behind them, so the deploy sequence is stable for a given input.
func SortReposByDependency(repos []RepoConfig) ([]RepoConfig, *apperr.Error) {
	nameToIdx := make(map[string]int, len(repos))
	for i, r := range repos {
		if _, dup := nameToIdx[r.Name]; dup {
			return nil, configErr("duplicate repo name: " + r.Name)
		}
		nameToIdx[r.Name] = i
	}

	inDegree := make([]int, len(repos))
	dependents := make([][]int, len(repos))

	for i, r := range repos {
		for _, depName := range r.DependsOn {
			depIdx, ok := nameToIdx[depName]
			if !ok {
				return nil, configErr(fmt.Sprintf("repo '%s' depends on unknown repo '%s'", r.Name, depName))
			}
			dependents[depIdx] = append(dependents[depIdx], i)
			inDegree[i]++
		}
	}

	ready := make([]int, 0, len(repos))
	for i := range repos {
		if inDegree[i] == 0 {
			ready = append(ready, i)
		}
	}

	sorted := make([]RepoConfig, 0, len(repos))
	for len(ready) > 0 {
		idx := ready[0]
		ready = ready[1:]
		sorted = append(sorted, repos[idx])
		for _, depIdx := range dependents[idx] {
			inDegree[depIdx]--
			if inDegree[depIdx] == 0 {
				ready = append(ready, depIdx)
			}
		}
	}

	if len(sorted) != len(repos) {
		cycle := ""
		for i, r := range repos {
			if inDegree[i] > 0 {
				if cycle != "" {
					cycle += ", "
				}
				cycle += r.Name
			}
		}
		return nil, configErr("dependency cycle detected among repos: " + cycle)
	}

	return sorted, nil
}
