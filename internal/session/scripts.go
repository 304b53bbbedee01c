package session

// The scripts run inside pages as old as IE8, so they stay ES3.

// primeScript installs window.report, which the executed code calls to record results,
// and records uncaught errors as ERROR results.
const primeScript = `
var state = window.__browsermatrix = window.__browsermatrix || { results: [] };
window.report = function (type, message, data) {
	state.results.push({
		type: String(type),
		message: message === undefined ? undefined : String(message),
		data: data
	});
};
var previous = window.onerror;
window.onerror = function (message, file, line) {
	window.report('ERROR', message, { file: file, line: line });
	if (previous) {
		return previous.apply(this, arguments);
	}
	return false;
};
return true;
`

const resultsScript = `
var state = window.__browsermatrix || { results: [] };
if (typeof JSON === 'undefined') {
	return state.results;
}
return JSON.stringify(state.results);
`
