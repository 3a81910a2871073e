package arch

var current Relocator = x86{}
