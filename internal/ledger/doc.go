// Package ledger is the append-only record of irrigation decisions.
//
// Every cycle that reaches a decision for a device writes exactly one
// Decision. The engine counts a device's watering decisions since the
// start of the quota day to enforce the daily cap, so a ledger write must
// be durable before the matching command is dispatched.
//
// SQLiteLedger is the default backend; InfluxLedger stores decisions in
// the "decisions" measurement tagged by client_id.
package ledger
