/*
Package ports defines the interfaces between the editor core and the code
around it.

These interfaces decouple the engine from plugins, storage backends and lock
providers, so each can be swapped without touching the core.

# Key Interfaces

  - Host: the narrow editor API handed to plugins during SetUp.
  - Plugin: an extension with an ordered SetUp/TearDown lifecycle.
  - DocumentStore: persists encoded documents (memory, file, redis, loam).
  - DistributedLocker: provides distributed locking for documents edited by several replicas.
*/
package ports
