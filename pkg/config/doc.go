// Package config loads typed configuration structs from environment
// variables and optional .env files.
//
// Every component in the pipeline declares its settings as an env-tagged
// struct (queue.Config, pg.Config, redis.Config, publisher.Config) and
// loads it with config.Load at startup. Parsed values are cached per type,
// so repeated loads are cheap and consistent.
package config
