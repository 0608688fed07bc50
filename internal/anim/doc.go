// Package anim drives layered skeletal animation from state machines.
//
// A Manager owns an ordered stack of Layers. Layer 0 is the base layer and
// must always resolve to a complete pose; every layer above it blends onto
// the layer directly beneath it (override or additive). Each Layer wraps one
// fsm.Machine whose active state binds clips through the play_clip action.
//
// FRAME:
//
//	Manager.Update
//	  throttle check, lastUpdate snapped to the update-rate grid
//	  every layer with an active state advances (clip time, then machine)
//	  the Applier runs once per registered Pose
//	  every active state gets PostUpdate
//
// The whole frame runs under the Manager's locker, which the engine shares
// with the reconciler so graph mutation never interleaves with a frame.
package anim
