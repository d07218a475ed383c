// Package publisher is the business layer of the posting pipeline: workers
// that publish content to external social platforms through the job queue.
//
// Four workers cover the publishing flows:
//
//   - PostWorker    — publishes a single durable PostJob to one destination
//   - BatchWorker   — fans one campaign out to an ordered destination list
//   - PromoWorker   — generates promotional copy variants with an AI backend
//   - MetricsWorker — collects engagement numbers an hour after publishing
//
// Workers depend on small collaborator interfaces (Publisher, AccountResolver,
// EligibilityChecker, repositories) so tests run against mocks and in-memory
// implementations; production wires the Postgres repository, the cooldown
// eligibility gate, and the real platform client.
//
// The package also defines the pipeline's queue names with their scaling
// policies, and Admin, the operator facade for pausing queues, retrying
// failed jobs, and forcing concurrency levels.
package publisher
