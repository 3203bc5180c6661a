// Package memory implements every store port in process memory. It is meant
// for tests and single-replica deployments; nothing survives a restart and
// nothing is shared between replicas.
package memory
