// Package touch provides the touch input source and its gesture
// recognizer.
//
// Every touch point is tracked from start to end. Single-touch movement
// is forwarded as continuous "TouchPan" events. When a touch ends it is
// classified by elapsed time and displacement, in priority order:
//
//   - tap: short and small ("TouchTap")
//   - long press: long and small ("TouchLongPress")
//   - swipe: short and large, bucketed into up/down/left/right
//     ("TouchSwipe")
//
// A touch matching none of these ends without a discrete gesture.
//
// A second simultaneous touch starts a pinch. The distance between the
// two points at that moment is the baseline; every later move of either
// point emits "TouchPinch" changed with value current/baseline. Pinch
// participants are never classified as tap or swipe.
//
// Cancel clears the same state as a normal end without classifying.
package touch
