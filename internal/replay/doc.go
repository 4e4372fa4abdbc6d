// Package replay retains a bounded window of recent messages so a subscriber
// can ask to start from an earlier slot.
//
// The window holds the messages of the last N slots (by highest slot seen),
// capped by a message count. A slot is replayable only while none of its
// messages has been evicted; FirstSlot reports the oldest such slot.
//
// Two backends share that contract: an in-process ring (NewMemory) and a
// scratch Pebble instance (OpenPebble) for windows too large for the heap.
package replay
