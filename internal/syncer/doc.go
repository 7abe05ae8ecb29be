// Package syncer reconciles the local cart with the server cart.
//
// A session starts in StateLocal. The first successful FetchCart merges the
// server cart into the local one and moves the session to StateReconciled;
// after that FetchCart is a no-op until Reset. SyncCart pushes the local
// snapshot and replaces the server cart wholesale.
package syncer
