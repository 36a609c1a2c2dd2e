// Package charts turns report groupings into bar charts drawn with
// gonum.org/v1/plot and written as SVG. Each bar carries its value label at
// the tip; an empty selection renders a titled chart with a notice instead
// of bars.
package charts
