package git

import (
	"os"

	"github.com/go-git/go-git/v5/config"
)

// Environment variables that set the commit identity.
const (
	EnvGitName  = "PBSETUP_GIT_NAME"
	EnvGitEmail = "PBSETUP_GIT_EMAIL"
)

// Placeholder identity used when nothing else is configured.
const (
	defaultUserName  = "pbsetup"
	defaultUserEmail = "pbsetup@localhost"
)

// loadGlobalConfig reads the user's global git config.
var loadGlobalConfig = func() (*config.Config, error) {
	return config.LoadConfig(config.GlobalScope)
}

// DetectGitUser picks the identity for the scaffold commit:
//  1. PBSETUP_GIT_NAME / PBSETUP_GIT_EMAIL
//  2. GIT_AUTHOR_NAME / GIT_AUTHOR_EMAIL
//  3. user.name / user.email from the global git config
//  4. a placeholder
func DetectGitUser() GitUserInfo {
	if name := os.Getenv(EnvGitName); name != "" {
		email := os.Getenv(EnvGitEmail)
		if email == "" {
			email = defaultUserEmail
		}
		return GitUserInfo{Name: name, Email: email, FromEnv: true}
	}

	if name := os.Getenv("GIT_AUTHOR_NAME"); name != "" {
		email := os.Getenv("GIT_AUTHOR_EMAIL")
		if email == "" {
			email = "git@localhost"
		}
		return GitUserInfo{Name: name, Email: email, FromEnv: true}
	}

	if cfg, err := loadGlobalConfig(); err == nil && cfg.User.Name != "" {
		email := cfg.User.Email
		if email == "" {
			email = defaultUserEmail
		}
		return GitUserInfo{Name: cfg.User.Name, Email: email, FromConfig: true}
	}

	return GitUserInfo{
		Name:      defaultUserName,
		Email:     defaultUserEmail,
		IsDefault: true,
	}
}
