// Package calculator is a local arithmetic tool: add, sub, mul and div over
// two floating-point operands.
package calculator
