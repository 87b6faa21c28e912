/*
go-roidwell monitors how long tracked objects remain inside a rectangular
region of interest (ROI) of a video stream and flags those that stay longer
than a configured maximum dwell time.

Object detection and tracking happen upstream.  For every frame the caller
hands the objects reported by its tracker, each with a stable track ID, class
label and pixel bounding box, to a dwell.Monitor.  The monitor returns the
render styles for each object and for the ROI outline, which the render
package can draw onto the frame using GoCV.  At the end of the stream the
report package writes a text summary of every object that entered the ROI.

See example usage in the example/roidwell subdirectory.
*/
package roidwell
