// Package stores provides the SQLite backend for rulekit: entities and
// configuration objects that containers persist, plus rule run bookkeeping
// and the audit trail. The store opens the transactions containers save
// through, and every resource write joins the transaction carried by its
// context.
package stores
