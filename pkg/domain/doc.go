package domain

// domain package contains the Domain Model of the Analytical Platform
// control panel: the entities the Resource Orchestration Core moves
// across the cloud (AWS), cluster (Kubernetes + Helm) and identity
// planes.
//
// `domain/ENTITY.go` has high-level entities (Domain Model types) and
// their pure functions.
//
// `domain/ENTITY/db` packages hold the database expression of each
// entity: `interface.go` exposes the client interface, `postgres/`
// implements it over pgx, and `mocks/` has hand-rolled test doubles.
//
// # Entities
//
// - `user`: a platform user, created on first OIDC login. Owns an IAM
// role, a Kubernetes namespace, bucket grants and tool deployments.
//
// - `app`: a deployed web application registered from a repository.
// Owns an IAM role and bucket grants; end-user access is managed as a
// customer group on the identity plane.
//
// - `bucket`: an object-storage bucket, env-prefixed and versioned.
//
// - grants (`UserBucketGrant`, `AppBucketGrant`, `PolicyBucketGrant`):
// the recorded permission of a principal on a bucket. Each grant edit
// drives a policy-document transaction on the principal's carrier.
//
// - `task`: a durable unit of queued work. Rows are written before
// the broker send, so a lost message is discoverable.
//
// - tools (`ToolRelease`, `ToolDeployment`): Helm charts users deploy
// into their own namespace, with a pollable lifecycle.
//
// - `dashboard`: an embedded dashboard shared with admins, viewers
// and whitelisted domains.
