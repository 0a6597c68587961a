// Package config loads and watches the pipeline policy file (policy.yaml).
//
// Top-level sections:
//   - inputs: paths of the four CSV inputs, relative to the policy file
//   - workload: up_max / down_max clamp bounds
//   - simulation: reassign_percentage and the variants to evaluate
//   - rebalance: the variant to rebalance and down_max_percentage
//   - replication: narrow_pool, family_pool (currency units) and insured_ratio
//   - overrides: facility-specific exceptions; absent means the national defaults
//
// Load(path) applies defaults, then validates. Range-limited scalars such as
// up_max are not rejected here; the stages clamp them and report a warning.
//
// Watch(ctx, path, onChange) reloads the file once it settles after a write
// or a rename-over save, and calls onChange with the new Config.
package config
