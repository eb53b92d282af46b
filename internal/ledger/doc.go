// Package ledger tracks chat point balances and applies debits and credits
// for raid investments and rewards.
package ledger
