// Package cities implements the collection state machine: the in-memory copy
// of the remote /cities resource for one session.
//
// State changes only through Reduce, a pure transition function over the
// sealed Action union:
//
//	loading        Loading=true
//	cities/loaded  Records=list, Loading=false
//	city/loaded    Current=rec, Loading=false
//	city/created   Records+=rec, Current=rec, Loading=false
//	city/deleted   Records-=id, Current=nil, Loading=false
//	rejected       Error=msg, Loading=false
//
// Store performs the network calls and is the single writer of State. Remote
// failures become a rejected action; they are also returned as Go errors for
// callers that want them, but callers are free to ignore those and read the
// state instead.
package cities
