package deploy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempYaml(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "deploy.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const sampleYaml = `
connection:
  host: sap.example.com
  port: 44300
  https: true
  client: "100"
  user: DEVELOPER
  password_env: SAP_PASSWORD
repos:
  - name: base
    url: https://github.com/example/base.git
    package: ZBASE
  - name: addon
    url: https://github.com/example/addon.git
    package: ZADDON
    branch: refs/heads/develop
    activate: false
    depends_on: [base]
log_file: /tmp/deploy.log
timeout: 300
`

func TestLoadFromYamlParsesRepoAndConnection(t *testing.T) {
	path := writeTempYaml(t, sampleYaml)
	config, err := LoadFromYaml(path)
	require.Nil(t, err)

	assert.Equal(t, "sap.example.com", config.Connection.Host)
	assert.Equal(t, uint16(44300), config.Connection.Port)
	assert.True(t, config.Connection.UseHttps)
	assert.Equal(t, "100", config.Connection.Client.String())
	assert.Equal(t, "SAP_PASSWORD", config.Connection.PasswordEnv)

	require.Len(t, config.Repos, 2)
	assert.Equal(t, "base", config.Repos[0].Name)
	assert.True(t, config.Repos[0].Activate)
	assert.Equal(t, "addon", config.Repos[1].Name)
	assert.False(t, config.Repos[1].Activate)
	require.NotNil(t, config.Repos[1].Branch)
	assert.Equal(t, []string{"base"}, config.Repos[1].DependsOn)
	assert.Equal(t, 300, config.TimeoutSeconds)
}

func TestLoadFromYamlRejectsRepoMissingPackage(t *testing.T) {
	path := writeTempYaml(t, `
connection:
  host: h
repos:
  - name: base
    url: https://github.com/example/base.git
`)
	_, err := LoadFromYaml(path)
	require.NotNil(t, err)
}

func TestLoadFromYamlMissingFile(t *testing.T) {
	_, err := LoadFromYaml("/nonexistent/path.yaml")
	require.NotNil(t, err)
}

func newTestFlagSet(args ...string) *pflag.FlagSet {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterCliFlags(fs)
	_ = fs.Parse(args)
	return fs
}

func TestLoadFromCliOnlyCapturesExplicitlySetFlags(t *testing.T) {
	fs := newTestFlagSet("--host", "cli.example.com", "--client", "200")
	config, err := LoadFromCli(fs)
	require.Nil(t, err)

	assert.Equal(t, "cli.example.com", config.Connection.Host)
	assert.Equal(t, "200", config.Connection.Client.String())
	assert.Equal(t, uint16(0), config.Connection.Port, "port wasn't set on the CLI, must stay zero so MergeConfigs leaves YAML's value alone")
}

func TestLoadFromCliSingleRepoModeDefaultsPackage(t *testing.T) {
	fs := newTestFlagSet("--repo", "https://github.com/example/solo.git")
	config, err := LoadFromCli(fs)
	require.Nil(t, err)

	require.Len(t, config.Repos, 1)
	assert.Equal(t, "cli-repo", config.Repos[0].Name)
	assert.Equal(t, "$TMP", config.Repos[0].Package.String())
	assert.True(t, config.Repos[0].Activate)
}

func TestLoadFromCliNoActivateDisablesActivation(t *testing.T) {
	fs := newTestFlagSet("--repo", "https://github.com/example/solo.git", "--no-activate")
	config, err := LoadFromCli(fs)
	require.Nil(t, err)
	assert.False(t, config.Repos[0].Activate)
}

func TestMergeConfigsCliOverridesWinOnlyWhenSet(t *testing.T) {
	yamlBase, err := LoadFromYaml(writeTempYaml(t, sampleYaml))
	require.Nil(t, err)

	cli, err := LoadFromCli(newTestFlagSet("--host", "override.example.com"))
	require.Nil(t, err)

	merged := MergeConfigs(yamlBase, cli)
	assert.Equal(t, "override.example.com", merged.Connection.Host)
	assert.Equal(t, uint16(44300), merged.Connection.Port, "unset CLI flags must not clobber the YAML value")
	require.Len(t, merged.Repos, 2, "repos are untouched when the CLI supplies none")
}

func TestMergeConfigsCliRepoReplacesYamlRepos(t *testing.T) {
	yamlBase, err := LoadFromYaml(writeTempYaml(t, sampleYaml))
	require.Nil(t, err)

	cli, err := LoadFromCli(newTestFlagSet("--repo", "https://github.com/example/solo.git", "--package", "ZSOLO"))
	require.Nil(t, err)

	merged := MergeConfigs(yamlBase, cli)
	require.Len(t, merged.Repos, 1)
	assert.Equal(t, "cli-repo", merged.Repos[0].Name)
}

func TestResolvePasswordEnvFillsFromEnvironment(t *testing.T) {
	t.Setenv("SAP_PASSWORD", "s3cr3t")
	config, err := LoadFromYaml(writeTempYaml(t, sampleYaml))
	require.Nil(t, err)

	resolved, rerr := ResolvePasswordEnv(config)
	require.Nil(t, rerr)
	assert.Equal(t, "s3cr3t", resolved.Connection.Password)
}

func TestResolvePasswordEnvMissingVariableIsError(t *testing.T) {
	config, err := LoadFromYaml(writeTempYaml(t, sampleYaml))
	require.Nil(t, err)

	_, rerr := ResolvePasswordEnv(config)
	require.NotNil(t, rerr)
}

func TestValidateConfigRequiresPasswordOrEnv(t *testing.T) {
	config, err := LoadFromYaml(writeTempYaml(t, sampleYaml))
	require.Nil(t, err)
	config.Connection.PasswordEnv = ""
	config.TimeoutSeconds = 60

	verr := ValidateConfig(config)
	require.NotNil(t, verr)
}

func TestValidateConfigRejectsVerboseAndQuietTogether(t *testing.T) {
	config, err := LoadFromYaml(writeTempYaml(t, sampleYaml))
	require.Nil(t, err)
	config.Connection.Password = "x"
	config.TimeoutSeconds = 60
	config.Verbose = true
	config.Quiet = true

	verr := ValidateConfig(config)
	require.NotNil(t, verr)
}

func TestValidateConfigAcceptsCompleteConfig(t *testing.T) {
	config, err := LoadFromYaml(writeTempYaml(t, sampleYaml))
	require.Nil(t, err)
	config.TimeoutSeconds = 60

	verr := ValidateConfig(config)
	assert.Nil(t, verr)
}

func TestSortReposByDependencyOrdersBaseBeforeAddon(t *testing.T) {
	config, err := LoadFromYaml(writeTempYaml(t, sampleYaml))
	require.Nil(t, err)

	sorted, serr := SortReposByDependency(config.Repos)
	require.Nil(t, serr)
	require.Len(t, sorted, 2)
	assert.Equal(t, "base", sorted[0].Name)
	assert.Equal(t, "addon", sorted[1].Name)
}

func TestSortReposByDependencyDetectsCycle(t *testing.T) {
	repos := []RepoConfig{
		{Name: "a", DependsOn: []string{"b"}},
		{Name: "b", DependsOn: []string{"a"}},
	}
	_, serr := SortReposByDependency(repos)
	require.NotNil(t, serr)
}

func TestSortReposByDependencyDetectsUnknownDependency(t *testing.T) {
	repos := []RepoConfig{
		{Name: "a", DependsOn: []string{"missing"}},
	}
	_, serr := SortReposByDependency(repos)
	require.NotNil(t, serr)
}

func TestSortReposByDependencyDetectsDuplicateNames(t *testing.T) {
	repos := []RepoConfig{
		{Name: "a"},
		{Name: "a"},
	}
	_, serr := SortReposByDependency(repos)
	require.NotNil(t, serr)
}
