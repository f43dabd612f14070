// Package config provides configuration loading, merging, and validation
// facilities for the settings sync client.
//
// Configuration is assembled from multiple sources in the following priority
// order (later sources override earlier non-zero fields):
//  1. A .env file in the working directory, if present
//  2. Environment variables (SETTINGSYNC_ prefix)
//  3. Command-line flags
//  4. JSON config file
//
// The main entry point is [Load].
package config
