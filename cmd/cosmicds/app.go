package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"cosmicds/internal/config"
	"cosmicds/internal/identity"
	"cosmicds/internal/logging"
	"cosmicds/internal/remote"
	"cosmicds/internal/store"
	"cosmicds/internal/syncer"
)

// app is what a command needs to act on a session: the loaded config,
// the shared remote client and the open session store.
type app struct {
	cfg     *config.ProjectConfig
	env     config.Env
	store   store.Store
	service *syncer.Service
}

func loadConfig(path string) (*config.ProjectConfig, config.Env, error) {
	if err := config.LoadDotEnv(".env"); err != nil {
		return nil, config.Env{}, err
	}
	env, err := config.LoadEnv()
	if err != nil {
		return nil, config.Env{}, err
	}

	cfg, err := config.LoadProjectConfig(path)
	if err != nil {
		return nil, config.Env{}, err
	}
	cfg.ApplyEnv(env)

	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, config.Env{}, err
	}
	logging.Init(logging.Config{Level: level, Output: os.Stderr, Pretty: cfg.Logging.Pretty})

	return cfg, env, nil
}

// manifestPath resolves the story manifest relative to the config file.
func manifestPath(configPath, manifest string) string {
	if manifest == "" || filepath.IsAbs(manifest) {
		return manifest
	}
	return filepath.Join(filepath.Dir(configPath), manifest)
}

func openApp(ctx context.Context, flags *globalFlags) (*app, error) {
	cfg, env, err := loadConfig(flags.configPath)
	if err != nil {
		return nil, err
	}

	var manifest *config.StoryManifest
	if path := manifestPath(flags.configPath, cfg.Story.Manifest); path != "" {
		manifest, err = config.LoadStoryManifest(path)
		if err != nil {
			return nil, err
		}
	}

	client, err := remote.New(remote.Options{
		BaseURL: cfg.API.URL,
		APIKey:  env.APIKey,
		Secret:  env.SessionSecret,
		Timeout: cfg.API.Timeout,
		SignUpConfirm: remote.ConfirmOptions{
			Attempts:        cfg.API.SignUpConfirm.Attempts,
			InitialInterval: cfg.API.SignUpConfirm.InitialInterval,
		},
	})
	if err != nil {
		return nil, err
	}

	st, err := openStore(ctx, cfg.Session.DSN)
	if err != nil {
		return nil, err
	}

	service, err := syncer.New(syncer.Options{
		Client:    client,
		Store:     st,
		StoryName: cfg.Story.Name,
		Manifest:  manifest,
	})
	if err != nil {
		st.Close(ctx)
		return nil, err
	}

	return &app{cfg: cfg, env: env, store: st, service: service}, nil
}

func (a *app) Close(ctx context.Context) error {
	return a.store.Close(ctx)
}

// userInfo builds the logged-in user from the flags. An ID token wins over
// --email and --name. No flags at all yields nil, which the remote client
// treats as an unauthenticated session.
func (a *app) userInfo(flags *globalFlags) (*identity.UserInfo, error) {
	if err := a.env.RequireSessionSecret(); err != nil {
		return nil, err
	}
	if flags.idToken != "" {
		user, err := identity.UserInfoFromIDToken(flags.idToken)
		if err != nil {
			return nil, fmt.Errorf("reading id token: %w", err)
		}
		return user, nil
	}
	if flags.email == "" && flags.name == "" {
		return nil, nil
	}
	return &identity.UserInfo{Email: flags.email, Name: flags.name}, nil
}

// withApp opens the app for the duration of fn.
func withApp(flags *globalFlags, fn func(ctx context.Context, a *app) error) error {
	ctx := context.Background()
	a, err := openApp(ctx, flags)
	if err != nil {
		return err
	}
	defer a.Close(ctx)
	return fn(ctx, a)
}
